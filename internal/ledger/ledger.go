package ledger

import (
	"fmt"
	"sync"

	"github.com/stockpilot/papertrade/internal/market"
)

// Ledger is the accounting engine for one strategy instance. All operations
// are serialized by an internal mutex, so a ledger is safe for the
// single-writer-per-ledger model the harness uses. Cash and position
// quantities can never go negative: every buy and sell is pre-checked in
// full before any mutation.
type Ledger struct {
	mu sync.Mutex

	cashDomestic float64
	cashForeign  float64
	limits       RiskLimits

	positions map[string]*Position
	trades    []Trade
	equity    []EquityPoint

	initialEquity  float64
	peakEquity     float64
	troughEquity   float64
	maxDrawdownPct float64

	totalSells      int
	profitableSells int
}

// New creates a ledger with the configured starting balances and risk limits.
func New(initialDomestic, initialForeign float64, limits RiskLimits) *Ledger {
	return &Ledger{
		cashDomestic: initialDomestic,
		cashForeign:  initialForeign,
		limits:       limits,
		positions:    make(map[string]*Position),
	}
}

// AvailableCash returns the cash balance for a currency, in that currency.
func (l *Ledger) AvailableCash(cur market.Currency) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableCash(cur)
}

func (l *Ledger) availableCash(cur market.Currency) float64 {
	if cur == market.CurrencyForeign {
		return l.cashForeign
	}
	return l.cashDomestic
}

// TotalEquity values the ledger in domestic currency using the caller's FX
// rate and price lookup. A position whose symbol has no price this tick is
// valued at its average cost; the ledger never caches market data.
func (l *Ledger) TotalEquity(tc TickContext) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalEquity(tc)
}

func (l *Ledger) totalEquity(tc TickContext) float64 {
	total := l.cashDomestic + l.cashForeign*tc.FXRate
	for sym, pos := range l.positions {
		price, ok := tc.Prices(sym)
		if !ok {
			price = pos.AverageCost
		}
		total += l.toDomestic(price*float64(pos.Quantity), pos.Currency, tc.FXRate)
	}
	return total
}

func (l *Ledger) toDomestic(v float64, cur market.Currency, fx float64) float64 {
	if cur == market.CurrencyForeign {
		return v * fx
	}
	return v
}

// ExecuteBuy debits cash and opens or extends a position. All four risk
// checks pass before any state changes; on rejection the ledger is untouched
// and a typed *BuyRejectedError is returned.
func (l *Ledger) ExecuteBuy(tc TickContext, symbol string, price float64, qty int64, reason Reason, scoreAtTrade int) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if qty <= 0 {
		return Trade{}, fmt.Errorf("buy %s: quantity must be positive, got %d", symbol, qty)
	}

	cur := market.ClassifySymbol(symbol)
	held, alreadyHeld := l.positions[symbol]

	if !alreadyHeld && len(l.positions) >= l.limits.MaxPositions {
		return Trade{}, &BuyRejectedError{Symbol: symbol, Reason: RejectMaxPositionsReached,
			Detail: fmt.Sprintf("%d positions open, limit %d", len(l.positions), l.limits.MaxPositions)}
	}

	cost := price * float64(qty)
	if cost > l.availableCash(cur) {
		return Trade{}, &BuyRejectedError{Symbol: symbol, Reason: RejectInsufficientCash,
			Detail: fmt.Sprintf("need %.2f, have %.2f %s", cost, l.availableCash(cur), cur)}
	}

	equity := l.totalEquity(tc)
	newQty := qty
	if alreadyHeld {
		newQty += held.Quantity
	}
	posValue := l.toDomestic(price*float64(newQty), cur, tc.FXRate)
	if equity > 0 {
		if weight := posValue / equity; weight > l.limits.MaxPositionWeight {
			return Trade{}, &BuyRejectedError{Symbol: symbol, Reason: RejectPositionWeightExceeded,
				Detail: fmt.Sprintf("weight %.2f%% exceeds limit %.2f%%", weight*100, l.limits.MaxPositionWeight*100)}
		}
		cashAfter := l.cashDomestic + l.cashForeign*tc.FXRate - l.toDomestic(cost, cur, tc.FXRate)
		if ratio := cashAfter / equity; ratio < l.limits.MinCashRatio {
			return Trade{}, &BuyRejectedError{Symbol: symbol, Reason: RejectMinCashRatioViolated,
				Detail: fmt.Sprintf("cash ratio %.2f%% below minimum %.2f%%", ratio*100, l.limits.MinCashRatio*100)}
		}
	}

	// All checks passed; commit.
	if cur == market.CurrencyForeign {
		l.cashForeign -= cost
	} else {
		l.cashDomestic -= cost
	}

	if alreadyHeld {
		totalCost := held.AverageCost*float64(held.Quantity) + cost
		held.Quantity += qty
		held.AverageCost = totalCost / float64(held.Quantity)
	} else {
		l.positions[symbol] = &Position{
			Symbol:      symbol,
			Quantity:    qty,
			AverageCost: price,
			Currency:    cur,
			OpenedAt:    tc.Now,
		}
	}

	trade := Trade{
		Timestamp:    tc.Now,
		Symbol:       symbol,
		Side:         SideBuy,
		Quantity:     qty,
		Price:        price,
		Currency:     cur,
		Reason:       reason,
		ScoreAtTrade: scoreAtTrade,
	}
	l.trades = append(l.trades, trade)
	return trade, nil
}

// ExecuteSell credits cash and reduces or removes a position. Realized P&L is
// (price - average cost) * qty; the average cost of any remaining quantity is
// unchanged. On rejection the ledger is untouched and a typed
// *SellRejectedError is returned.
func (l *Ledger) ExecuteSell(tc TickContext, symbol string, price float64, qty int64, reason Reason, scoreAtTrade int) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		return Trade{}, &SellRejectedError{Symbol: symbol, Reason: RejectNoPosition, Detail: "no open position"}
	}
	if qty <= 0 {
		return Trade{}, fmt.Errorf("sell %s: quantity must be positive, got %d", symbol, qty)
	}
	if qty > pos.Quantity {
		return Trade{}, &SellRejectedError{Symbol: symbol, Reason: RejectInsufficientQuantity,
			Detail: fmt.Sprintf("hold %d, tried to sell %d", pos.Quantity, qty)}
	}

	proceeds := price * float64(qty)
	if pos.Currency == market.CurrencyForeign {
		l.cashForeign += proceeds
	} else {
		l.cashDomestic += proceeds
	}

	pnl := (price - pos.AverageCost) * float64(qty)
	holding := tc.Now.Sub(pos.OpenedAt)

	pos.Quantity -= qty
	if pos.Quantity == 0 {
		delete(l.positions, symbol)
	}

	l.totalSells++
	if pnl > 0 {
		l.profitableSells++
	}

	trade := Trade{
		Timestamp:     tc.Now,
		Symbol:        symbol,
		Side:          SideSell,
		Quantity:      qty,
		Price:         price,
		Currency:      pos.Currency,
		Reason:        reason,
		ScoreAtTrade:  scoreAtTrade,
		RealizedPnL:   pnl,
		HoldingPeriod: holding,
	}
	l.trades = append(l.trades, trade)
	return trade, nil
}

// Checkpoint appends an equity point for this tick, updates the peak and
// trough, and returns the current drawdown as a fraction of peak equity.
// The first checkpoint fixes the session's initial equity.
func (l *Ledger) Checkpoint(tc TickContext) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	equity := l.totalEquity(tc)
	if len(l.equity) == 0 {
		l.initialEquity = equity
		l.peakEquity = equity
		l.troughEquity = equity
	}
	if equity > l.peakEquity {
		l.peakEquity = equity
	}
	if equity < l.troughEquity {
		l.troughEquity = equity
	}

	returnPct := 0.0
	if l.initialEquity > 0 {
		returnPct = (equity - l.initialEquity) / l.initialEquity * 100
	}
	l.equity = append(l.equity, EquityPoint{Timestamp: tc.Now, TotalEquity: equity, ReturnPct: returnPct})

	drawdown := 0.0
	if l.peakEquity > 0 {
		drawdown = (l.peakEquity - equity) / l.peakEquity
	}
	if dd := drawdown * 100; dd > l.maxDrawdownPct {
		l.maxDrawdownPct = dd
	}
	return drawdown
}

// Position returns a copy of the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns a copy of all open positions.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	return out
}

// Trades returns a copy of the trade log in commit order.
func (l *Ledger) Trades() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// EquityCurve returns a copy of the checkpointed equity points.
func (l *Ledger) EquityCurve() []EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EquityPoint, len(l.equity))
	copy(out, l.equity)
	return out
}

// CashDomestic returns the domestic cash balance.
func (l *Ledger) CashDomestic() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cashDomestic
}

// CashForeign returns the foreign cash balance.
func (l *Ledger) CashForeign() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cashForeign
}

// InitialEquity returns the equity fixed at the first checkpoint, or 0 if no
// checkpoint has been taken yet.
func (l *Ledger) InitialEquity() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialEquity
}

// MaxDrawdownPct returns the worst observed drawdown in percent.
func (l *Ledger) MaxDrawdownPct() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxDrawdownPct
}

// SellStats returns the number of profitable sells and total sells.
func (l *Ledger) SellStats() (profitable, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profitableSells, l.totalSells
}
