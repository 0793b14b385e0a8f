// Package feed supplies market snapshots to the tick loop. Two sources are
// provided: a file source that replays day-partitioned snapshot drops, and a
// websocket source that tracks a live collector.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/stockpilot/papertrade/internal/market"
)

// ErrExhausted signals that a replay source has no more snapshot sets.
var ErrExhausted = errors.New("feed: no more snapshots")

// SnapshotSet is one feed payload: all symbols observed at one moment.
type SnapshotSet struct {
	Timestamp time.Time                  `json:"timestamp"`
	Snapshots map[string]market.Snapshot `json:"snapshots"`
}

// Source produces successive snapshot sets for the tick loop.
type Source interface {
	// Fetch returns the next snapshot set. Replay sources return
	// ErrExhausted when the data runs out; live sources block or return
	// their latest buffered set.
	Fetch(ctx context.Context) (SnapshotSet, error)
}
