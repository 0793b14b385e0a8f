// Package policy holds per-strategy configuration and the buy/sell decision
// state machine evaluated once per symbol per tick.
package policy

import (
	"fmt"

	"github.com/stockpilot/papertrade/internal/ledger"
)

// Config is one strategy's immutable session configuration. Validation is
// fatal: a harness never starts with an out-of-range config.
type Config struct {
	Name               string  `yaml:"name" json:"name"`
	BuyScoreThreshold  int     `yaml:"buy_score_threshold" json:"buy_score_threshold"`
	SellScoreThreshold int     `yaml:"sell_score_threshold" json:"sell_score_threshold"`
	SizingFraction     float64 `yaml:"sizing_fraction" json:"sizing_fraction"`
	MaxPositions       int     `yaml:"max_positions" json:"max_positions"`
	MaxPositionWeight  float64 `yaml:"max_position_weight" json:"max_position_weight"`
	MinCashRatio       float64 `yaml:"min_cash_ratio" json:"min_cash_ratio"`
	StopLossPct        float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct      float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
}

// Validate checks every field range. Any violation is a construction-time
// failure for the whole session.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("strategy config: name is required")
	}
	if c.BuyScoreThreshold < 0 || c.BuyScoreThreshold > 100 {
		return fmt.Errorf("strategy %s: buy_score_threshold %d outside [0,100]", c.Name, c.BuyScoreThreshold)
	}
	if c.SellScoreThreshold < 0 || c.SellScoreThreshold > 100 {
		return fmt.Errorf("strategy %s: sell_score_threshold %d outside [0,100]", c.Name, c.SellScoreThreshold)
	}
	if c.SizingFraction <= 0 || c.SizingFraction > 1 {
		return fmt.Errorf("strategy %s: sizing_fraction %.3f outside (0,1]", c.Name, c.SizingFraction)
	}
	if c.MaxPositions <= 0 {
		return fmt.Errorf("strategy %s: max_positions must be positive, got %d", c.Name, c.MaxPositions)
	}
	if c.MaxPositionWeight <= 0 || c.MaxPositionWeight > 1 {
		return fmt.Errorf("strategy %s: max_position_weight %.3f outside (0,1]", c.Name, c.MaxPositionWeight)
	}
	if c.MinCashRatio < 0 || c.MinCashRatio > 1 {
		return fmt.Errorf("strategy %s: min_cash_ratio %.3f outside [0,1]", c.Name, c.MinCashRatio)
	}
	if c.StopLossPct >= 0 {
		return fmt.Errorf("strategy %s: stop_loss_pct must be negative, got %.3f", c.Name, c.StopLossPct)
	}
	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("strategy %s: take_profit_pct must be positive, got %.3f", c.Name, c.TakeProfitPct)
	}
	return nil
}

// RiskLimits extracts the portfolio constraints the ledger enforces.
func (c Config) RiskLimits() ledger.RiskLimits {
	return ledger.RiskLimits{
		MaxPositions:      c.MaxPositions,
		MaxPositionWeight: c.MaxPositionWeight,
		MinCashRatio:      c.MinCashRatio,
	}
}
