package grading

import (
	"math"
	"sort"
)

// Rank returns the percentile of score among historical plus score itself:
// the lowest index of score in the ascending order, over the combined count,
// times 100. Ties rank from the bottom. historical is not modified.
func Rank(score float64, historical []float64) float64 {
	all := make([]float64, 0, len(historical)+1)
	all = append(all, historical...)
	all = append(all, score)
	sort.Float64s(all)

	idx := sort.SearchFloat64s(all, score)
	return float64(idx) / float64(len(all)) * 100
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
