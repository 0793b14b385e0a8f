// Package stats provides the small statistical toolkit the comparison layer
// needs: period-return series and a one-way ANOVA across strategies.
package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// PeriodReturns converts an equity series into successive percentage changes
// between consecutive points. A series with fewer than two points yields nil.
func PeriodReturns(equities []float64) []float64 {
	if len(equities) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equities)-1)
	for i := 1; i < len(equities); i++ {
		prev := equities[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (equities[i]-prev)/prev*100)
	}
	return out
}

// Mean returns the arithmetic mean, 0 for an empty series.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev returns the sample standard deviation, 0 when undefined.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// OneWayANOVA runs a one-way analysis of variance over k groups and returns
// the F statistic and p-value. Every group needs at least two observations.
func OneWayANOVA(groups [][]float64) (fStat, pValue float64, err error) {
	if len(groups) < 2 {
		return 0, 0, fmt.Errorf("anova: need at least 2 groups, got %d", len(groups))
	}

	n := 0
	var all []float64
	for i, g := range groups {
		if len(g) < 2 {
			return 0, 0, fmt.Errorf("anova: group %d has %d observations, need at least 2", i, len(g))
		}
		n += len(g)
		all = append(all, g...)
	}

	grand := stat.Mean(all, nil)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		m := stat.Mean(g, nil)
		d := m - grand
		ssBetween += float64(len(g)) * d * d
		for _, x := range g {
			dx := x - m
			ssWithin += dx * dx
		}
	}

	dfBetween := float64(len(groups) - 1)
	dfWithin := float64(n - len(groups))

	if ssWithin == 0 {
		// Zero within-group variance: either the groups are identical
		// (no evidence of difference) or trivially separated.
		if ssBetween == 0 {
			return 0, 1, nil
		}
		return 0, 0, nil
	}

	fStat = (ssBetween / dfBetween) / (ssWithin / dfWithin)
	dist := distuv.F{D1: dfBetween, D2: dfWithin}
	pValue = dist.Survival(fStat)
	return fStat, pValue, nil
}
