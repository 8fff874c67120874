// Package stats holds the numeric kernels shared by the analyzers. Moments and
// histograms come from gonum. Quantiles interpolate linearly between closest
// ranks, which gonum's stat.Quantile does not offer.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func Sum(values []float64) float64 {
	return floats.Sum(values)
}

// Mean returns NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// StdDev is the sample standard deviation. It is NaN below two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.StdDev(values, nil)
}

// CoV is std/mean expressed as a percentage. NaN when mean is zero.
func CoV(std, mean float64) float64 {
	if mean == 0 || math.IsNaN(mean) || math.IsNaN(std) {
		return math.NaN()
	}
	return std / mean * 100
}

// Sorted returns an ascending copy.
func Sorted(values []float64) []float64 {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}

// Quantile expects sorted input and q in [0, 1].
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	h := q * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func Median(sorted []float64) float64 {
	return Quantile(sorted, 0.5)
}

type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// Histogram splits [min, max] into equal-width bins. The last bin is closed on
// both sides. A constant input is spread over [v-0.5, v+0.5].
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	sorted := Sorted(values)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	// stat.Histogram bins are half-open; nudge the top divider so max counts
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].Upper = hi
	return out
}
