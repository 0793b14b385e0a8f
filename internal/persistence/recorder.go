package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/stockpilot/papertrade/internal/harness"
	"github.com/stockpilot/papertrade/internal/ledger"
)

// Recorder implements harness.Observer against a Store. All writes go
// through a circuit breaker: when the database misbehaves, observations are
// logged and dropped rather than stalling the tick loop.
type Recorder struct {
	sessionID string
	store     *Store
	breaker   *gobreaker.CircuitBreaker

	// OnDrop is invoked once per dropped write, keyed by operation name.
	// Optional; wired to the metrics counter by the caller.
	OnDrop func(op string)
}

// NewRecorder builds a Recorder for one session.
func NewRecorder(sessionID string, store *Store) *Recorder {
	settings := gobreaker.Settings{
		Name:    "persistence",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("persistence breaker state change")
		},
	}
	return &Recorder{
		sessionID: sessionID,
		store:     store,
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Bind sets the session ID stamped onto every record. Called once, before
// the first tick, when the harness has assigned the session its ID.
func (r *Recorder) Bind(sessionID string) {
	r.sessionID = sessionID
}

func (r *Recorder) execute(op string, fn func() error) {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		log.Error().Err(err).Str("op", op).Msg("persistence write dropped")
		if r.OnDrop != nil {
			r.OnDrop(op)
		}
	}
}

// OnTrade persists a committed trade.
func (r *Recorder) OnTrade(ctx context.Context, strategy string, trade ledger.Trade) {
	rec := TradeRecord{
		SessionID:     r.sessionID,
		Strategy:      strategy,
		Timestamp:     trade.Timestamp,
		Symbol:        trade.Symbol,
		Side:          string(trade.Side),
		Quantity:      trade.Quantity,
		Price:         trade.Price,
		Currency:      string(trade.Currency),
		Reason:        string(trade.Reason),
		ScoreAtTrade:  float64(trade.ScoreAtTrade),
		RealizedPnL:   trade.RealizedPnL,
		HoldingPeriod: int64(trade.HoldingPeriod / time.Second),
	}
	r.execute("trade", func() error {
		return r.store.Trades.Insert(ctx, rec)
	})
}

// OnRejection is observed but not stored; rejections live in logs and
// metrics only.
func (r *Recorder) OnRejection(ctx context.Context, strategy, symbol, kind, reason string) {}

// OnCheckpoint persists one strategy's equity point for this tick.
func (r *Recorder) OnCheckpoint(ctx context.Context, strategy string, point ledger.EquityPoint, drawdownPct float64) {
	rec := CheckpointRecord{
		SessionID:   r.sessionID,
		Strategy:    strategy,
		Timestamp:   point.Timestamp,
		TotalEquity: point.TotalEquity,
		ReturnPct:   point.ReturnPct,
		DrawdownPct: drawdownPct,
	}
	r.execute("checkpoint", func() error {
		return r.store.Checkpoints.Insert(ctx, rec)
	})
}

// SaveReport stores the final session report as a JSON document. Unlike tick
// observations this is a terminal write, so the error surfaces to the caller.
func (r *Recorder) SaveReport(ctx context.Context, report harness.FinalReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	rec := ReportRecord{
		SessionID:   report.SessionID,
		Winner:      report.Winner,
		TickCount:   report.TickCount,
		Report:      payload,
		GeneratedAt: report.GeneratedAt,
	}
	if _, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.store.Reports.Insert(ctx, rec)
	}); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}
