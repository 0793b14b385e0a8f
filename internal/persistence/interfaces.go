// Package persistence defines the storage contracts for session artifacts:
// committed trades, per-tick checkpoints, and final reports. The postgres
// subpackage implements them; the Recorder bridges the harness to a store
// without letting storage failures touch the tick loop.
package persistence

import (
	"context"
	"time"
)

// TradeRecord is one committed trade row.
type TradeRecord struct {
	ID            int64     `json:"id" db:"id"`
	SessionID     string    `json:"session_id" db:"session_id"`
	Strategy      string    `json:"strategy" db:"strategy"`
	Timestamp     time.Time `json:"ts" db:"ts"`
	Symbol        string    `json:"symbol" db:"symbol"`
	Side          string    `json:"side" db:"side"`
	Quantity      int64     `json:"qty" db:"qty"`
	Price         float64   `json:"price" db:"price"`
	Currency      string    `json:"currency" db:"currency"`
	Reason        string    `json:"reason" db:"reason"`
	ScoreAtTrade  float64   `json:"score_at_trade" db:"score_at_trade"`
	RealizedPnL   float64   `json:"realized_pnl" db:"realized_pnl"`
	HoldingPeriod int64     `json:"holding_period_sec" db:"holding_period_sec"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// CheckpointRecord is one per-strategy equity point.
type CheckpointRecord struct {
	ID          int64     `json:"id" db:"id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	Strategy    string    `json:"strategy" db:"strategy"`
	Timestamp   time.Time `json:"ts" db:"ts"`
	TotalEquity float64   `json:"total_equity" db:"total_equity"`
	ReturnPct   float64   `json:"return_pct" db:"return_pct"`
	DrawdownPct float64   `json:"drawdown_pct" db:"drawdown_pct"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ReportRecord stores a final session report as a JSON document.
type ReportRecord struct {
	ID          int64     `json:"id" db:"id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	Winner      string    `json:"winner" db:"winner"`
	TickCount   int       `json:"tick_count" db:"tick_count"`
	Report      []byte    `json:"report" db:"report"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TradesRepo persists committed trades.
type TradesRepo interface {
	Insert(ctx context.Context, trade TradeRecord) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]TradeRecord, error)
}

// CheckpointsRepo persists equity checkpoints.
type CheckpointsRepo interface {
	Insert(ctx context.Context, cp CheckpointRecord) error
	InsertBatch(ctx context.Context, cps []CheckpointRecord) error
	ListByStrategy(ctx context.Context, sessionID, strategy string, limit int) ([]CheckpointRecord, error)
}

// ReportsRepo persists final session reports.
type ReportsRepo interface {
	Insert(ctx context.Context, report ReportRecord) error
	GetBySession(ctx context.Context, sessionID string) (*ReportRecord, error)
}

// Store bundles the repositories behind one handle.
type Store struct {
	Trades      TradesRepo
	Checkpoints CheckpointsRepo
	Reports     ReportsRepo
}
