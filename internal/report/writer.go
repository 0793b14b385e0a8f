// Package report writes session artifacts to disk: periodic comparison
// checkpoints as JSON, and the final report as both JSON and a human
// readable markdown summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockpilot/papertrade/internal/harness"
)

// Writer emits artifacts for one session under <dir>/<session-id>/.
type Writer struct {
	dir string
}

// NewWriter creates the session's artifact directory.
func NewWriter(baseDir, sessionID string) (*Writer, error) {
	dir := filepath.Join(baseDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the session's artifact directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteComparison stores one periodic comparison, named by its tick count so
// successive checkpoints sort naturally.
func (w *Writer) WriteComparison(comp harness.Comparison) error {
	name := fmt.Sprintf("comparison_%06d.json", comp.TickCount)
	if err := w.writeJSON(name, comp); err != nil {
		return err
	}
	log.Debug().Str("file", name).Msg("comparison artifact written")
	return nil
}

// WriteFinal stores the final report as JSON plus a markdown summary.
func (w *Writer) WriteFinal(rep harness.FinalReport) error {
	if err := w.writeJSON("final_report.json", rep); err != nil {
		return err
	}
	path := filepath.Join(w.dir, "final_report.md")
	if err := os.WriteFile(path, []byte(renderMarkdown(rep)), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	log.Info().Str("dir", w.dir).Msg("final report artifacts written")
	return nil
}

func (w *Writer) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

func renderMarkdown(rep harness.FinalReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Strategy Comparison Report\n\n")
	fmt.Fprintf(&b, "- Session: %s\n", rep.SessionID)
	fmt.Fprintf(&b, "- Period: %s — %s\n",
		rep.StartedAt.Format(time.RFC3339), rep.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Ticks: %d\n\n", rep.TickCount)

	fmt.Fprintf(&b, "## Winner: %s\n\n", rep.Winner)
	for _, f := range rep.WinningFactors {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	fmt.Fprintf(&b, "\n## Standings\n\n")
	fmt.Fprintf(&b, "| Rank | Strategy | Return %% | Win Rate %% | Max DD %% | Risk Ratio | Trades | Risk |\n")
	fmt.Fprintf(&b, "|------|----------|----------|------------|----------|------------|--------|------|\n")

	byName := make(map[string]harness.StrategyMetrics, len(rep.Strategies))
	for _, m := range rep.Strategies {
		byName[m.Name] = m
	}
	for i, name := range rep.Ranking {
		m := byName[name]
		risk := rep.Risk[name]
		fmt.Fprintf(&b, "| %d | %s | %.2f | %.1f | %.2f | %.2f | %d | %s |\n",
			i+1, m.Name, m.ReturnPct, m.WinRate, m.MaxDrawdownPct, m.RiskRatio, m.TradeCount, risk.Level)
	}

	fmt.Fprintf(&b, "\n## Significance\n\n")
	if rep.Significance.InsufficientData {
		fmt.Fprintf(&b, "Not enough samples for the significance test.\n")
	} else {
		fmt.Fprintf(&b, "- F statistic: %.4f\n", rep.Significance.FStatistic)
		fmt.Fprintf(&b, "- p-value: %.4f\n", rep.Significance.PValue)
		if rep.Significance.Significant {
			fmt.Fprintf(&b, "- The performance differences are statistically significant (p < 0.05).\n")
		} else {
			fmt.Fprintf(&b, "- The performance differences are not statistically significant.\n")
		}
	}

	fmt.Fprintf(&b, "\n## Suggestions\n\n")
	for _, s := range rep.Suggestions {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	return b.String()
}
