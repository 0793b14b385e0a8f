package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/papertrade/internal/market"
)

var baseTime = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func tick(prices map[string]float64) TickContext {
	return TickContext{
		Now:    baseTime,
		FXRate: 1300,
		Prices: func(sym string) (float64, bool) {
			p, ok := prices[sym]
			return p, ok
		},
	}
}

func permissiveLimits() RiskLimits {
	return RiskLimits{MaxPositions: 10, MaxPositionWeight: 1.0, MinCashRatio: 0}
}

func TestBuyUpdatesWeightedAverageCost(t *testing.T) {
	l := New(10_000_000, 10_000, permissiveLimits())
	tc := tick(map[string]float64{"005930.KS": 1000})

	_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)
	_, err = l.ExecuteBuy(tc, "005930.KS", 1200, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)

	pos, ok := l.Position("005930.KS")
	require.True(t, ok)
	assert.Equal(t, int64(20), pos.Quantity)
	assert.InDelta(t, 1100, pos.AverageCost, 1e-9)
	assert.InDelta(t, 10_000_000-10*1000-10*1200, l.CashDomestic(), 1e-9)
}

func TestSellRealizesPnLAgainstAverageCost(t *testing.T) {
	l := New(10_000_000, 10_000, permissiveLimits())
	tc := tick(map[string]float64{"005930.KS": 1000})

	_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)
	_, err = l.ExecuteBuy(tc, "005930.KS", 1200, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)

	later := tc
	later.Now = baseTime.Add(26 * time.Hour)
	trade, err := l.ExecuteSell(later, "005930.KS", 1300, 5, ReasonTakeProfit, 20)
	require.NoError(t, err)

	assert.InDelta(t, (1300-1100)*5, trade.RealizedPnL, 1e-9)
	assert.Equal(t, 26*time.Hour, trade.HoldingPeriod)

	// Remaining quantity keeps the same average cost.
	pos, ok := l.Position("005930.KS")
	require.True(t, ok)
	assert.Equal(t, int64(15), pos.Quantity)
	assert.InDelta(t, 1100, pos.AverageCost, 1e-9)
}

func TestFullExitRemovesPosition(t *testing.T) {
	l := New(10_000_000, 10_000, permissiveLimits())
	tc := tick(map[string]float64{"005930.KS": 1000})

	_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)
	_, err = l.ExecuteSell(tc, "005930.KS", 1000, 10, ReasonSignalExit, 30)
	require.NoError(t, err)

	_, ok := l.Position("005930.KS")
	assert.False(t, ok)
	assert.Empty(t, l.Positions())
}

func TestRoundTripAtSamePriceIsFlat(t *testing.T) {
	l := New(10_000_000, 10_000, permissiveLimits())
	tc := tick(map[string]float64{"005930.KS": 1000})

	_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)
	trade, err := l.ExecuteSell(tc, "005930.KS", 1000, 10, ReasonSignalExit, 30)
	require.NoError(t, err)

	assert.InDelta(t, 0, trade.RealizedPnL, 1e-9)
	assert.InDelta(t, 10_000_000, l.CashDomestic(), 1e-9)
}

func TestForeignSymbolUsesForeignCash(t *testing.T) {
	l := New(10_000_000, 10_000, permissiveLimits())
	tc := tick(map[string]float64{"AAPL": 200})

	_, err := l.ExecuteBuy(tc, "AAPL", 200, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)

	assert.InDelta(t, 8000, l.CashForeign(), 1e-9)
	assert.InDelta(t, 10_000_000, l.CashDomestic(), 1e-9)

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, market.CurrencyForeign, pos.Currency)
}

func TestBuyRejectionsInPriorityOrder(t *testing.T) {
	t.Run("max positions", func(t *testing.T) {
		l := New(10_000_000, 10_000, RiskLimits{MaxPositions: 1, MaxPositionWeight: 1, MinCashRatio: 0})
		tc := tick(map[string]float64{"005930.KS": 1000, "000660.KS": 500})

		_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 1, ReasonSignalEntry, 80)
		require.NoError(t, err)

		_, err = l.ExecuteBuy(tc, "000660.KS", 500, 1, ReasonSignalEntry, 80)
		br, ok := AsBuyRejected(err)
		require.True(t, ok)
		assert.Equal(t, RejectMaxPositionsReached, br.Reason)

		// Adding to an already held symbol does not count a new slot.
		_, err = l.ExecuteBuy(tc, "005930.KS", 1000, 1, ReasonSignalEntry, 80)
		assert.NoError(t, err)
	})

	t.Run("insufficient cash", func(t *testing.T) {
		l := New(1000, 10, permissiveLimits())
		tc := tick(map[string]float64{"005930.KS": 1000})

		_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 2, ReasonSignalEntry, 80)
		br, ok := AsBuyRejected(err)
		require.True(t, ok)
		assert.Equal(t, RejectInsufficientCash, br.Reason)
		assert.InDelta(t, 1000, l.CashDomestic(), 1e-9, "rejected buy must not touch cash")
	})

	t.Run("position weight", func(t *testing.T) {
		l := New(10_000_000, 0, RiskLimits{MaxPositions: 10, MaxPositionWeight: 0.30, MinCashRatio: 0})
		tc := tick(map[string]float64{"005930.KS": 1_000_000})

		// 4 shares = 4M of ~10M equity = 40% > 30%.
		_, err := l.ExecuteBuy(tc, "005930.KS", 1_000_000, 4, ReasonSignalEntry, 80)
		br, ok := AsBuyRejected(err)
		require.True(t, ok)
		assert.Equal(t, RejectPositionWeightExceeded, br.Reason)

		// 2 shares = 20% passes.
		_, err = l.ExecuteBuy(tc, "005930.KS", 1_000_000, 2, ReasonSignalEntry, 80)
		assert.NoError(t, err)
	})

	t.Run("min cash ratio", func(t *testing.T) {
		l := New(10_000_000, 0, RiskLimits{MaxPositions: 10, MaxPositionWeight: 1, MinCashRatio: 0.80})
		tc := tick(map[string]float64{"005930.KS": 1_000_000})

		// Spending 3M leaves 70% cash, below the 80% floor.
		_, err := l.ExecuteBuy(tc, "005930.KS", 1_000_000, 3, ReasonSignalEntry, 80)
		br, ok := AsBuyRejected(err)
		require.True(t, ok)
		assert.Equal(t, RejectMinCashRatioViolated, br.Reason)
	})
}

func TestSellRejections(t *testing.T) {
	l := New(10_000_000, 10_000, permissiveLimits())
	tc := tick(map[string]float64{"005930.KS": 1000})

	_, err := l.ExecuteSell(tc, "005930.KS", 1000, 1, ReasonSignalExit, 30)
	sr, ok := AsSellRejected(err)
	require.True(t, ok)
	assert.Equal(t, RejectNoPosition, sr.Reason)

	_, err = l.ExecuteBuy(tc, "005930.KS", 1000, 5, ReasonSignalEntry, 80)
	require.NoError(t, err)

	_, err = l.ExecuteSell(tc, "005930.KS", 1000, 6, ReasonSignalExit, 30)
	sr, ok = AsSellRejected(err)
	require.True(t, ok)
	assert.Equal(t, RejectInsufficientQuantity, sr.Reason)

	// The failed sell changed nothing.
	pos, _ := l.Position("005930.KS")
	assert.Equal(t, int64(5), pos.Quantity)
}

func TestCheckpointTracksReturnAndDrawdown(t *testing.T) {
	l := New(10_000_000, 0, permissiveLimits())
	prices := map[string]float64{"005930.KS": 1000}
	tc := tick(prices)

	_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 1000, ReasonSignalEntry, 80)
	require.NoError(t, err)

	l.Checkpoint(tc)
	assert.InDelta(t, 10_000_000, l.InitialEquity(), 1e-6)

	prices["005930.KS"] = 1100
	l.Checkpoint(tc)

	prices["005930.KS"] = 990
	dd := l.Checkpoint(tc)

	curve := l.EquityCurve()
	require.Len(t, curve, 3)
	assert.InDelta(t, 1.0, curve[1].ReturnPct, 1e-9)   // +100k on 10M
	assert.InDelta(t, -0.1, curve[2].ReturnPct, 1e-9)  // -10k on 10M
	assert.Greater(t, dd, 0.0)
	assert.InDelta(t, (10_100_000.0-9_990_000.0)/10_100_000.0*100, l.MaxDrawdownPct(), 1e-9)
}

func TestEquityFallsBackToAverageCostOnDataGap(t *testing.T) {
	l := New(10_000_000, 0, permissiveLimits())
	tc := tick(map[string]float64{"005930.KS": 1000})

	_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 100, ReasonSignalEntry, 80)
	require.NoError(t, err)

	// No price for the held symbol this tick: the position is valued at
	// average cost, so equity is unchanged.
	gap := tick(map[string]float64{})
	assert.InDelta(t, 10_000_000, l.TotalEquity(gap), 1e-6)
}

func TestSellStats(t *testing.T) {
	l := New(10_000_000, 10_000, permissiveLimits())
	tc := tick(map[string]float64{"005930.KS": 1000})

	_, err := l.ExecuteBuy(tc, "005930.KS", 1000, 10, ReasonSignalEntry, 80)
	require.NoError(t, err)
	_, err = l.ExecuteSell(tc, "005930.KS", 1100, 5, ReasonTakeProfit, 20)
	require.NoError(t, err)
	_, err = l.ExecuteSell(tc, "005930.KS", 900, 5, ReasonStopLoss, 20)
	require.NoError(t, err)

	profitable, total := l.SellStats()
	assert.Equal(t, 1, profitable)
	assert.Equal(t, 2, total)
}
