package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/papertrade/internal/ledger"
	"github.com/stockpilot/papertrade/internal/market"
)

func validConfig() Config {
	return Config{
		Name:               "balanced",
		BuyScoreThreshold:  65,
		SellScoreThreshold: 35,
		SizingFraction:     0.10,
		MaxPositions:       5,
		MaxPositionWeight:  0.30,
		MinCashRatio:       0.20,
		StopLossPct:        -5.0,
		TakeProfitPct:      10.0,
	}
}

func testTick(prices map[string]float64) ledger.TickContext {
	return ledger.TickContext{
		Now:    time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		FXRate: 1300,
		Prices: func(sym string) (float64, bool) {
			p, ok := prices[sym]
			return p, ok
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errs   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing name", func(c *Config) { c.Name = "" }, "name is required"},
		{"buy threshold too high", func(c *Config) { c.BuyScoreThreshold = 101 }, "buy_score_threshold"},
		{"sell threshold negative", func(c *Config) { c.SellScoreThreshold = -1 }, "sell_score_threshold"},
		{"zero sizing", func(c *Config) { c.SizingFraction = 0 }, "sizing_fraction"},
		{"sizing above one", func(c *Config) { c.SizingFraction = 1.5 }, "sizing_fraction"},
		{"zero max positions", func(c *Config) { c.MaxPositions = 0 }, "max_positions"},
		{"weight above one", func(c *Config) { c.MaxPositionWeight = 1.1 }, "max_position_weight"},
		{"negative cash ratio", func(c *Config) { c.MinCashRatio = -0.1 }, "min_cash_ratio"},
		{"positive stop loss", func(c *Config) { c.StopLossPct = 1 }, "stop_loss_pct"},
		{"negative take profit", func(c *Config) { c.TakeProfitPct = -1 }, "take_profit_pct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errs == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errs)
			}
		})
	}
}

func TestEntryRequiresThresholdAndAffordableQuantity(t *testing.T) {
	cfg := validConfig()
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 70_000})
	snap := market.Snapshot{Symbol: "005930.KS", Price: 70_000}

	// Below threshold: no action, still flat.
	_, acted, err := p.EvaluateTick(tc, snap, 64, led)
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Equal(t, StateFlat, p.State())

	// At threshold: buys floor(10M * 0.10 / 70000) = 14 shares.
	trade, acted, err := p.EvaluateTick(tc, snap, 65, led)
	require.NoError(t, err)
	require.True(t, acted)
	assert.Equal(t, ledger.SideBuy, trade.Side)
	assert.Equal(t, ledger.ReasonSignalEntry, trade.Reason)
	assert.Equal(t, int64(14), trade.Quantity)
	assert.Equal(t, StateLong, p.State())
}

func TestEntrySkippedWhenShareExceedsAllocation(t *testing.T) {
	cfg := validConfig()
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 2_000_000})

	// 10% of cash is 1M, below one share. Not an error, just no trade.
	snap := market.Snapshot{Symbol: "005930.KS", Price: 2_000_000}
	_, acted, err := p.EvaluateTick(tc, snap, 90, led)
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Equal(t, StateFlat, p.State())
}

func TestExitPriorityStopLossFirst(t *testing.T) {
	cfg := validConfig()
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 70_000})

	_, acted, err := p.EvaluateTick(tc, market.Snapshot{Symbol: "005930.KS", Price: 70_000}, 80, led)
	require.NoError(t, err)
	require.True(t, acted)

	// Price down 6% and score below the sell threshold: the stop loss wins.
	snap := market.Snapshot{Symbol: "005930.KS", Price: 65_800}
	trade, acted, err := p.EvaluateTick(tc, snap, 20, led)
	require.NoError(t, err)
	require.True(t, acted)
	assert.Equal(t, ledger.ReasonStopLoss, trade.Reason)
	assert.Equal(t, StateFlat, p.State())
}

func TestExitTakeProfitBeforeSignalExit(t *testing.T) {
	cfg := validConfig()
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 70_000})

	_, _, err := p.EvaluateTick(tc, market.Snapshot{Symbol: "005930.KS", Price: 70_000}, 80, led)
	require.NoError(t, err)

	// Up 10% with a weak score: take profit, not signal exit.
	snap := market.Snapshot{Symbol: "005930.KS", Price: 77_000}
	trade, acted, err := p.EvaluateTick(tc, snap, 20, led)
	require.NoError(t, err)
	require.True(t, acted)
	assert.Equal(t, ledger.ReasonTakeProfit, trade.Reason)
}

func TestSignalExitSellsWholePosition(t *testing.T) {
	cfg := validConfig()
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 70_000})

	entry, _, err := p.EvaluateTick(tc, market.Snapshot{Symbol: "005930.KS", Price: 70_000}, 80, led)
	require.NoError(t, err)

	// Flat price, score at the sell threshold.
	snap := market.Snapshot{Symbol: "005930.KS", Price: 70_100}
	trade, acted, err := p.EvaluateTick(tc, snap, 35, led)
	require.NoError(t, err)
	require.True(t, acted)
	assert.Equal(t, ledger.ReasonSignalExit, trade.Reason)
	assert.Equal(t, entry.Quantity, trade.Quantity)

	_, held := led.Position("005930.KS")
	assert.False(t, held)
}

func TestHoldBetweenThresholds(t *testing.T) {
	cfg := validConfig()
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 70_000})

	_, _, err := p.EvaluateTick(tc, market.Snapshot{Symbol: "005930.KS", Price: 70_000}, 80, led)
	require.NoError(t, err)

	// Small move, healthy score: no exit fires.
	snap := market.Snapshot{Symbol: "005930.KS", Price: 71_000}
	_, acted, err := p.EvaluateTick(tc, snap, 50, led)
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Equal(t, StateLong, p.State())
}

func TestRejectedBuyLeavesStateFlat(t *testing.T) {
	cfg := validConfig()
	cfg.MinCashRatio = 0.99
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 70_000})

	_, acted, err := p.EvaluateTick(tc, market.Snapshot{Symbol: "005930.KS", Price: 70_000}, 80, led)
	require.Error(t, err)
	assert.False(t, acted)
	assert.Equal(t, StateFlat, p.State())

	br, ok := ledger.AsBuyRejected(err)
	require.True(t, ok)
	assert.Equal(t, ledger.RejectMinCashRatioViolated, br.Reason)
}

func TestStateResyncsWhenPositionGone(t *testing.T) {
	cfg := validConfig()
	led := ledger.New(10_000_000, 10_000, cfg.RiskLimits())
	p := New(cfg, "005930.KS")
	tc := testTick(map[string]float64{"005930.KS": 70_000})

	_, _, err := p.EvaluateTick(tc, market.Snapshot{Symbol: "005930.KS", Price: 70_000}, 80, led)
	require.NoError(t, err)
	require.Equal(t, StateLong, p.State())

	// Position removed out from under the policy.
	pos, _ := led.Position("005930.KS")
	_, err = led.ExecuteSell(tc, "005930.KS", 70_000, pos.Quantity, ledger.ReasonSignalExit, 30)
	require.NoError(t, err)

	// Next tick resyncs to FLAT and evaluates entry with a low score.
	_, acted, err := p.EvaluateTick(tc, market.Snapshot{Symbol: "005930.KS", Price: 70_000}, 10, led)
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Equal(t, StateFlat, p.State())
}
