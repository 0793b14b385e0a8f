package harness

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockpilot/papertrade/internal/ledger"
	"github.com/stockpilot/papertrade/internal/stats"
)

// Compare derives every strategy's performance metrics from its equity curve
// and trade log, ranks the field by return, and runs the one-way ANOVA over
// the period-return series when every strategy has enough samples.
func (h *Harness) Compare(now time.Time) Comparison {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compareLocked(now)
}

func (h *Harness) compareLocked(now time.Time) Comparison {
	comp := Comparison{
		SessionID: h.sessionID,
		Timestamp: now,
		TickCount: h.tickCount,
	}

	returnGroups := make([][]float64, 0, len(h.instances))
	for _, inst := range h.instances {
		m, periodReturns := h.deriveMetrics(inst)
		comp.Strategies = append(comp.Strategies, m)
		returnGroups = append(returnGroups, periodReturns)
	}

	comp.Ranking = rank(comp.Strategies)
	comp.Significance = h.significance(returnGroups)
	h.latest = &comp
	return comp
}

// deriveMetrics computes one strategy's comparison row plus its raw
// period-return series for the significance test.
func (h *Harness) deriveMetrics(inst *instance) (StrategyMetrics, []float64) {
	curve := inst.led.EquityCurve()

	m := StrategyMetrics{
		Name:              inst.cfg.Name,
		MaxDrawdownPct:    inst.led.MaxDrawdownPct(),
		OpenPositionCount: len(inst.led.Positions()),
	}

	if len(curve) > 0 {
		last := curve[len(curve)-1]
		m.ReturnPct = last.ReturnPct
		m.TotalEquity = last.TotalEquity
	}

	profitable, totalSells := inst.led.SellStats()
	if totalSells > 0 {
		m.WinRate = float64(profitable) / float64(totalSells) * 100
	}

	trades := inst.led.Trades()
	m.TradeCount = len(trades)

	var holdingSum float64
	var sells int
	for _, t := range trades {
		if t.Side == ledger.SideSell {
			holdingSum += t.HoldingPeriod.Hours()
			sells++
		}
	}
	if sells > 0 {
		m.AvgHoldingPeriod = holdingSum / float64(sells)
	}

	equities := make([]float64, len(curve))
	for i, pt := range curve {
		equities[i] = pt.TotalEquity
	}
	periodReturns := stats.PeriodReturns(equities)

	m.Volatility = stats.StdDev(periodReturns)
	if m.Volatility > 0 {
		m.RiskRatio = (m.ReturnPct - h.opts.RiskFreeRate) / m.Volatility
	}

	return m, periodReturns
}

// rank orders strategies descending by return, breaking ties by name so the
// ranking is stable across identical runs.
func rank(metrics []StrategyMetrics) []string {
	sorted := make([]StrategyMetrics, len(metrics))
	copy(sorted, metrics)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ReturnPct != sorted[j].ReturnPct {
			return sorted[i].ReturnPct > sorted[j].ReturnPct
		}
		return sorted[i].Name < sorted[j].Name
	})

	names := make([]string, len(sorted))
	for i, m := range sorted {
		names[i] = m.Name
	}
	return names
}

func (h *Harness) significance(groups [][]float64) Significance {
	for _, g := range groups {
		if len(g) < h.opts.MinSamples {
			return Significance{PValue: 1, InsufficientData: true}
		}
	}

	fStat, pValue, err := stats.OneWayANOVA(groups)
	if err != nil {
		log.Warn().Err(err).Msg("significance test skipped")
		return Significance{PValue: 1, InsufficientData: true}
	}

	return Significance{
		PValue:      pValue,
		FStatistic:  fStat,
		Significant: pValue < 0.05,
	}
}

// Latest returns the most recent comparison, if one has been computed.
func (h *Harness) Latest() (Comparison, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return Comparison{}, false
	}
	return *h.latest, true
}
