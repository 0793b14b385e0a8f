// Package market defines the snapshot and symbol types shared by the scoring,
// policy and ledger layers. Snapshots are produced by the external data
// collector and are immutable for the duration of a tick.
package market

import (
	"strings"
	"time"
)

// Currency distinguishes the two cash buckets a ledger maintains.
type Currency string

const (
	CurrencyDomestic Currency = "DOMESTIC"
	CurrencyForeign  Currency = "FOREIGN"
)

// MACD carries the pre-computed MACD triple for a symbol.
type MACD struct {
	Value     float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Snapshot is one per-tick observation of a symbol. RSI and MACD are pointers
// because the collector may not have enough history to compute them yet; a
// missing indicator means "no adjustment", never an error.
type Snapshot struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"current_price"`
	RSI          *float64  `json:"rsi,omitempty"`
	MACD         *MACD     `json:"macd,omitempty"`
	Volume       int64     `json:"volume"`
	DayChangePct float64   `json:"change_percent"`
	Timestamp    time.Time `json:"timestamp"`
}

// PriceLookup resolves the current tick's price for a symbol. The second
// return is false when the symbol has no snapshot this tick.
type PriceLookup func(symbol string) (float64, bool)

// SnapshotPrices builds a PriceLookup over a tick's snapshot set.
func SnapshotPrices(snaps map[string]Snapshot) PriceLookup {
	return func(symbol string) (float64, bool) {
		s, ok := snaps[symbol]
		if !ok {
			return 0, false
		}
		return s.Price, true
	}
}

// ClassifySymbol maps a symbol to its trading currency. Korean exchange
// suffixes (.KS, .KQ) settle in the domestic currency, everything else is
// foreign. The classification is fixed for a symbol's lifetime.
func ClassifySymbol(symbol string) Currency {
	if strings.HasSuffix(symbol, ".KS") || strings.HasSuffix(symbol, ".KQ") {
		return CurrencyDomestic
	}
	return CurrencyForeign
}
