// Package score derives a bounded confidence score from technical indicators
// using a fixed additive rule table.
package score

import (
	"math/rand"

	"github.com/stockpilot/papertrade/internal/market"
)

const (
	// Base is the neutral starting score before any rule fires.
	Base = 50

	// Min and Max bound every returned score.
	Min = 0
	Max = 100
)

// Model maps a market snapshot to a score in [Min, Max]. A Model with a nil
// noise source is fully deterministic; with one, each call perturbs the score
// by a value in [-5, +5] drawn from that source, never the process-global
// generator, so a seeded run stays reproducible.
type Model struct {
	noise *rand.Rand
}

// NewModel returns a deterministic model.
func NewModel() *Model {
	return &Model{}
}

// NewNoisyModel returns a model that jitters each score using the given
// source. Callers own the seed.
func NewNoisyModel(noise *rand.Rand) *Model {
	return &Model{noise: noise}
}

// Score applies the rule table to a snapshot. Missing RSI or MACD fields
// contribute no adjustment.
func (m *Model) Score(snap market.Snapshot) int {
	s := Base

	if snap.RSI != nil {
		switch rsi := *snap.RSI; {
		case rsi < 30: // oversold
			s += 25
		case rsi < 40:
			s += 15
		case rsi > 70: // overbought
			s -= 20
		case rsi > 60:
			s -= 10
		}
	}

	if snap.MACD != nil {
		if snap.MACD.Value > snap.MACD.Signal {
			s += 15
		} else {
			s -= 15
		}
	}

	if snap.Volume > 1_000_000 {
		s += 10
	} else if snap.Volume < 100_000 {
		s -= 5
	}

	switch chg := snap.DayChangePct; {
	case chg > 0 && chg < 3:
		s += 10
	case chg > 5:
		s -= 5
	case chg < -3:
		s -= 15
	}

	if m.noise != nil {
		s += m.noise.Intn(11) - 5
	}

	return clamp(s)
}

func clamp(s int) int {
	if s < Min {
		return Min
	}
	if s > Max {
		return Max
	}
	return s
}
