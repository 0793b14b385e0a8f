// Package ledger implements the simulated accounting engine: dual-currency
// cash, weighted-average-cost positions, an append-only trade log and an
// equity curve with drawdown tracking. One ledger is owned by exactly one
// strategy instance and is only mutated by that strategy's decision step.
package ledger

import (
	"time"

	"github.com/stockpilot/papertrade/internal/market"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Reason records why a trade was issued.
type Reason string

const (
	ReasonSignalEntry Reason = "SIGNAL_ENTRY"
	ReasonSignalExit  Reason = "SIGNAL_EXIT"
	ReasonStopLoss    Reason = "STOP_LOSS"
	ReasonTakeProfit  Reason = "TAKE_PROFIT"
)

// Trade is one committed fill. The trade log is append-only and ordered by
// commit time. RealizedPnL and HoldingPeriod are set on SELL trades only.
type Trade struct {
	Timestamp     time.Time       `json:"timestamp"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Quantity      int64           `json:"quantity"`
	Price         float64         `json:"price"`
	Currency      market.Currency `json:"currency"`
	Reason        Reason          `json:"reason"`
	ScoreAtTrade  int             `json:"score_at_trade"`
	RealizedPnL   float64         `json:"realized_pnl,omitempty"`
	HoldingPeriod time.Duration   `json:"holding_period,omitempty"`
}

// Position is a currently held lot. AverageCost is the quantity-weighted
// per-unit cost in the position's own currency; it is updated by buys and
// untouched by sells.
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	AverageCost float64         `json:"average_cost"`
	Currency    market.Currency `json:"currency"`
	OpenedAt    time.Time       `json:"opened_at"`
}

// EquityPoint is one checkpoint of total equity, valued in domestic currency.
type EquityPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalEquity float64   `json:"total_equity"`
	ReturnPct   float64   `json:"return_pct"`
}

// RiskLimits are the per-strategy portfolio constraints the ledger enforces
// on every buy.
type RiskLimits struct {
	MaxPositions      int
	MaxPositionWeight float64
	MinCashRatio      float64
}

// TickContext carries the per-call market inputs the ledger needs to value
// itself. FX and prices are supplied by the caller every time; the ledger
// caches neither.
type TickContext struct {
	Now    time.Time
	FXRate float64
	Prices market.PriceLookup
}
