// Package harness drives N isolated strategy instances against one snapshot
// stream, checkpoints their ledgers, ranks them, and runs the significance
// test that decides whether observed performance differences are real.
package harness

import (
	"context"
	"time"

	"github.com/stockpilot/papertrade/internal/ledger"
)

// Options configures a comparison session. Strategy configs are supplied
// separately and validated at construction.
type Options struct {
	InitialDomesticCash float64
	InitialForeignCash  float64
	FXRate              float64
	RiskFreeRate        float64 // percent, subtracted from return_pct in the risk ratio
	MinSamples          int     // minimum period returns per strategy before testing significance
	NoiseEnabled        bool
	NoiseSeed           int64
}

// DefaultOptions mirrors the paper-trading defaults: 10M domestic, 10k
// foreign, a fixed 1300 FX rate and a 3% risk-free rate.
func DefaultOptions() Options {
	return Options{
		InitialDomesticCash: 10_000_000,
		InitialForeignCash:  10_000,
		FXRate:              1300,
		RiskFreeRate:        3.0,
		MinSamples:          10,
	}
}

// StrategyMetrics is one strategy's derived performance at a comparison point.
type StrategyMetrics struct {
	Name              string  `json:"name"`
	ReturnPct         float64 `json:"return_pct"`
	WinRate           float64 `json:"win_rate"` // percent of SELL trades with positive realized P&L
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	RiskRatio         float64 `json:"risk_ratio"`
	Volatility        float64 `json:"volatility"` // stdev of period returns, percentage points
	TradeCount        int     `json:"trade_count"`
	AvgHoldingPeriod  float64 `json:"avg_holding_period_hours"`
	TotalEquity       float64 `json:"total_equity"`
	OpenPositionCount int     `json:"open_position_count"`
}

// Significance is the outcome of the cross-strategy ANOVA.
type Significance struct {
	PValue           float64 `json:"p_value"`
	FStatistic       float64 `json:"f_statistic"`
	Significant      bool    `json:"significant"`
	InsufficientData bool    `json:"insufficient_data,omitempty"`
}

// Comparison is one periodic cross-strategy evaluation.
type Comparison struct {
	SessionID    string            `json:"session_id"`
	Timestamp    time.Time         `json:"timestamp"`
	TickCount    int               `json:"tick_count"`
	Strategies   []StrategyMetrics `json:"strategies"`
	Ranking      []string          `json:"ranking"`
	Significance Significance      `json:"significance"`
}

// RiskAssessment buckets a strategy's risk posture from its drawdown,
// risk ratio and volatility bands.
type RiskAssessment struct {
	Score int    `json:"risk_score"`
	Level string `json:"risk_level"` // Low, Medium, High
}

// FinalReport is the end-of-session document handed to the reporting
// collaborator.
type FinalReport struct {
	SessionID      string                    `json:"session_id"`
	StartedAt      time.Time                 `json:"started_at"`
	GeneratedAt    time.Time                 `json:"generated_at"`
	TickCount      int                       `json:"tick_count"`
	Winner         string                    `json:"winner"`
	WinningFactors []string                  `json:"winning_factors"`
	Strategies     []StrategyMetrics         `json:"strategies"`
	Ranking        []string                  `json:"ranking"`
	Significance   Significance              `json:"significance"`
	Suggestions    []string                  `json:"suggestions"`
	Risk           map[string]RiskAssessment `json:"risk_analysis"`
}

// Observer receives committed trades, rejections and checkpoints as they
// happen. Implementations must not block the tick loop on failure; dropped
// observations are their own concern.
type Observer interface {
	OnTrade(ctx context.Context, strategy string, trade ledger.Trade)
	OnRejection(ctx context.Context, strategy, symbol, kind, reason string)
	OnCheckpoint(ctx context.Context, strategy string, point ledger.EquityPoint, drawdownPct float64)
}
