package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// WSSource tracks a live snapshot collector over a websocket. The read loop
// keeps the most recent set buffered; Fetch hands out a copy. Reconnects are
// rate limited so a flapping collector cannot turn into a tight dial loop.
type WSSource struct {
	url     string
	limiter *rate.Limiter

	mu     sync.RWMutex
	latest SnapshotSet
	seen   bool
}

// NewWSSource creates a source for the given collector endpoint. Run must be
// started before Fetch returns anything.
func NewWSSource(url string) *WSSource {
	return &WSSource{
		url:     url,
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Run dials, reads and reconnects until the context ends.
func (w *WSSource) Run(ctx context.Context) {
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
		if err != nil {
			log.Warn().Err(err).Str("url", w.url).Msg("feed dial failed")
			continue
		}
		log.Info().Str("url", w.url).Msg("feed connected")

		w.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("url", w.url).Msg("feed disconnected, reconnecting")
	}
}

func (w *WSSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var set SnapshotSet
		if err := conn.ReadJSON(&set); err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("feed read failed")
			}
			return
		}
		if len(set.Snapshots) == 0 {
			continue
		}
		if set.Timestamp.IsZero() {
			set.Timestamp = time.Now()
		}

		w.mu.Lock()
		w.latest = set
		w.seen = true
		w.mu.Unlock()
	}
}

// Fetch returns the most recent snapshot set received, or an error when
// nothing has arrived yet.
func (w *WSSource) Fetch(ctx context.Context) (SnapshotSet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.seen {
		return SnapshotSet{}, fmt.Errorf("feed: no snapshot received yet")
	}
	return w.latest, nil
}
