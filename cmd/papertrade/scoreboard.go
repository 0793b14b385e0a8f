package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/stockpilot/papertrade/internal/harness"
)

// scoreboard prints a compact standings table after each comparison when
// stdout is an interactive terminal. Piped output stays clean for logs.
type scoreboard struct {
	out io.Writer
	tty bool
}

func newScoreboard(out *os.File) *scoreboard {
	return &scoreboard{
		out: out,
		tty: term.IsTerminal(int(out.Fd())),
	}
}

func (s *scoreboard) Render(comp harness.Comparison) {
	if !s.tty {
		return
	}

	byName := make(map[string]harness.StrategyMetrics, len(comp.Strategies))
	for _, m := range comp.Strategies {
		byName[m.Name] = m
	}

	fmt.Fprintf(s.out, "\n── tick %d ─ %s ──\n", comp.TickCount, comp.Timestamp.Format("15:04:05"))
	fmt.Fprintf(s.out, "%-4s %-14s %10s %9s %8s %7s\n", "#", "strategy", "return%", "winrate%", "maxdd%", "trades")
	for i, name := range comp.Ranking {
		m := byName[name]
		fmt.Fprintf(s.out, "%-4d %-14s %10.2f %9.1f %8.2f %7d\n",
			i+1, m.Name, m.ReturnPct, m.WinRate, m.MaxDrawdownPct, m.TradeCount)
	}
	if comp.Significance.InsufficientData {
		fmt.Fprintf(s.out, "significance: insufficient data\n")
	} else {
		fmt.Fprintf(s.out, "significance: p=%.4f significant=%v\n",
			comp.Significance.PValue, comp.Significance.Significant)
	}
}
