package policy

import (
	"math"

	"github.com/stockpilot/papertrade/internal/ledger"
	"github.com/stockpilot/papertrade/internal/market"
)

// State is the per-symbol position state.
type State string

const (
	StateFlat State = "FLAT"
	StateLong State = "LONG"
)

// Policy is the decision state machine for one symbol under one strategy.
// It issues at most one ledger operation per tick. A rejected operation
// leaves the state unchanged; a committed exit returns the symbol to FLAT.
type Policy struct {
	cfg    Config
	symbol string
	state  State
}

// New creates a FLAT policy for symbol.
func New(cfg Config, symbol string) *Policy {
	return &Policy{cfg: cfg, symbol: symbol, state: StateFlat}
}

// State returns the current machine state.
func (p *Policy) State() State {
	return p.state
}

// EvaluateTick runs one decision step against the owning strategy's ledger.
// Exit rules are checked in fixed priority: stop loss, take profit, signal
// exit. The returned trade is zero-valued when no action was taken; the
// returned error, if any, is a typed ledger rejection.
func (p *Policy) EvaluateTick(tc ledger.TickContext, snap market.Snapshot, scoreVal int, led *ledger.Ledger) (ledger.Trade, bool, error) {
	if p.state == StateLong {
		return p.evaluateExit(tc, snap, scoreVal, led)
	}
	return p.evaluateEntry(tc, snap, scoreVal, led)
}

func (p *Policy) evaluateExit(tc ledger.TickContext, snap market.Snapshot, scoreVal int, led *ledger.Ledger) (ledger.Trade, bool, error) {
	pos, ok := led.Position(p.symbol)
	if !ok {
		// State drifted from the ledger; resync and fall through to entry.
		p.state = StateFlat
		return p.evaluateEntry(tc, snap, scoreVal, led)
	}

	returnPct := (snap.Price - pos.AverageCost) / pos.AverageCost * 100

	var reason ledger.Reason
	switch {
	case returnPct <= p.cfg.StopLossPct:
		reason = ledger.ReasonStopLoss
	case returnPct >= p.cfg.TakeProfitPct:
		reason = ledger.ReasonTakeProfit
	case scoreVal <= p.cfg.SellScoreThreshold:
		reason = ledger.ReasonSignalExit
	default:
		return ledger.Trade{}, false, nil
	}

	trade, err := led.ExecuteSell(tc, p.symbol, snap.Price, pos.Quantity, reason, scoreVal)
	if err != nil {
		return ledger.Trade{}, false, err
	}
	p.state = StateFlat
	return trade, true, nil
}

func (p *Policy) evaluateEntry(tc ledger.TickContext, snap market.Snapshot, scoreVal int, led *ledger.Ledger) (ledger.Trade, bool, error) {
	if scoreVal < p.cfg.BuyScoreThreshold {
		return ledger.Trade{}, false, nil
	}

	cur := market.ClassifySymbol(p.symbol)
	investable := led.AvailableCash(cur) * p.cfg.SizingFraction
	qty := int64(math.Floor(investable / snap.Price))
	if qty <= 0 {
		return ledger.Trade{}, false, nil
	}

	trade, err := led.ExecuteBuy(tc, p.symbol, snap.Price, qty, ledger.ReasonSignalEntry, scoreVal)
	if err != nil {
		return ledger.Trade{}, false, err
	}
	p.state = StateLong
	return trade, true, nil
}
