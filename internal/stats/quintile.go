package stats

import (
	"cmp"
	"slices"
)

// Bins is the number of score groups used by QuantileScores callers.
const Bins = 5

// RankFirst assigns ranks 1..n by ascending value. Equal values are ranked in
// the order they appear, so every rank is distinct.
func RankFirst(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(values[a], values[b])
	})
	ranks := make([]float64, len(values))
	for rank, i := range idx {
		ranks[i] = float64(rank + 1)
	}
	return ranks
}

// QuantileEdges returns the bins+1 equal-population cut points of values.
func QuantileEdges(values []float64, bins int) []float64 {
	sorted := Sorted(values)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = Quantile(sorted, float64(i)/float64(bins))
	}
	return edges
}

// QuantileScores scores each value 1..bins by the right-closed interval of the
// quantile edges it falls into: 1 + the number of interior edges strictly below
// it. When ties make edges coincide the collapsed intervals merge and the
// merged group takes the lowest score it spans. Equal inputs always share a
// score.
func QuantileScores(values []float64, bins int) []int {
	scores := make([]int, len(values))
	if len(values) == 0 {
		return scores
	}
	edges := QuantileEdges(values, bins)
	interior := edges[1:bins]
	for i, v := range values {
		score := 1
		for _, e := range interior {
			if e < v {
				score++
			}
		}
		scores[i] = score
	}
	return scores
}
