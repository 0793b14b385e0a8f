package metrics

import (
	"context"

	"github.com/stockpilot/papertrade/internal/ledger"
)

// Observer feeds harness events into the registry's collectors.
type Observer struct {
	reg *Registry
}

// NewObserver wraps a registry as a harness observer.
func NewObserver(reg *Registry) *Observer {
	return &Observer{reg: reg}
}

func (o *Observer) OnTrade(ctx context.Context, strategy string, trade ledger.Trade) {
	o.reg.Trades.WithLabelValues(strategy, string(trade.Side), string(trade.Reason)).Inc()
}

func (o *Observer) OnRejection(ctx context.Context, strategy, symbol, kind, reason string) {
	o.reg.Rejections.WithLabelValues(strategy, kind, reason).Inc()
}

func (o *Observer) OnCheckpoint(ctx context.Context, strategy string, point ledger.EquityPoint, drawdownPct float64) {
	o.reg.Equity.WithLabelValues(strategy).Set(point.TotalEquity)
	o.reg.ReturnPct.WithLabelValues(strategy).Set(point.ReturnPct)
	o.reg.DrawdownPct.WithLabelValues(strategy).Set(drawdownPct)
}
