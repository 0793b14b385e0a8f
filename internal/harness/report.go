package harness

import (
	"fmt"
	"time"
)

// FinalReport runs a closing comparison and assembles the session document:
// winner, per-strategy metrics, significance, advisory suggestions and the
// risk breakdown. Suggestions are text for a human; nothing is applied
// automatically.
func (h *Harness) FinalReport(now time.Time) FinalReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	comp := h.compareLocked(now)

	report := FinalReport{
		SessionID:    h.sessionID,
		StartedAt:    h.startedAt,
		GeneratedAt:  now,
		TickCount:    h.tickCount,
		Strategies:   comp.Strategies,
		Ranking:      comp.Ranking,
		Significance: comp.Significance,
		Risk:         make(map[string]RiskAssessment, len(comp.Strategies)),
	}

	byName := make(map[string]StrategyMetrics, len(comp.Strategies))
	for _, m := range comp.Strategies {
		byName[m.Name] = m
		report.Risk[m.Name] = assessRisk(m)
		report.Suggestions = append(report.Suggestions, suggestions(m)...)
	}

	if len(comp.Ranking) > 0 {
		report.Winner = comp.Ranking[0]
		report.WinningFactors = winningFactors(byName[report.Winner])
	}
	if len(report.Suggestions) == 0 {
		report.Suggestions = []string{"all strategies performed within expected bands; keep current settings"}
	}

	return report
}

// suggestions applies the fixed advisory rule table to one strategy.
func suggestions(m StrategyMetrics) []string {
	var out []string
	if m.WinRate < 60 {
		out = append(out, fmt.Sprintf("%s: win rate %.1f%% is low; raise buy_score_threshold", m.Name, m.WinRate))
	}
	if m.TradeCount < 10 {
		out = append(out, fmt.Sprintf("%s: only %d trades; lower buy_score_threshold or widen sizing_fraction", m.Name, m.TradeCount))
	}
	if m.MaxDrawdownPct > 10 {
		out = append(out, fmt.Sprintf("%s: max drawdown %.1f%% is high; tighten stop_loss_pct", m.Name, m.MaxDrawdownPct))
	}
	return out
}

// winningFactors names what carried the top-ranked strategy.
func winningFactors(m StrategyMetrics) []string {
	var factors []string
	if m.WinRate > 70 {
		factors = append(factors, "high win rate")
	}
	if m.RiskRatio > 1.0 {
		factors = append(factors, "strong risk-adjusted return")
	}
	if m.MaxDrawdownPct < 5 {
		factors = append(factors, "low max drawdown")
	}
	if m.TradeCount > 20 {
		factors = append(factors, "healthy trade frequency")
	}
	if len(factors) == 0 {
		factors = []string{"balanced overall performance"}
	}
	return factors
}

// assessRisk buckets a strategy into Low/Medium/High from its drawdown,
// risk ratio and volatility bands.
func assessRisk(m StrategyMetrics) RiskAssessment {
	score := 0

	switch {
	case m.MaxDrawdownPct < 3:
		score += 30
	case m.MaxDrawdownPct < 5:
		score += 20
	case m.MaxDrawdownPct < 10:
		score += 10
	}

	switch {
	case m.RiskRatio > 1.5:
		score += 30
	case m.RiskRatio > 1.0:
		score += 20
	case m.RiskRatio > 0.5:
		score += 10
	}

	if m.Volatility > 2 && m.Volatility < 8 {
		score += 20
	} else if m.Volatility <= 2 {
		score += 10
	}

	level := "High"
	if score > 50 {
		level = "Low"
	} else if score > 30 {
		level = "Medium"
	}
	return RiskAssessment{Score: score, Level: level}
}
