package aggregation

import (
	"math"
	"sort"
)

// roundTenths rounds non-negative percentages to one decimal so that the rounded
// values sum to exactly round(sum(weights), 1), never above 100.
// Largest remainder: floor everything, then hand out the missing tenths to the
// largest fractional parts (earlier index wins ties). Order between entries is preserved.
func roundTenths(weights []float64) []float64 {
	out := make([]float64, len(weights))
	if len(weights) == 0 {
		return out
	}

	var total float64
	floors := make([]int, len(weights))
	fracs := make([]float64, len(weights))
	floorSum := 0
	for i, w := range weights {
		units := w * 10
		total += units
		floors[i] = int(math.Floor(units))
		fracs[i] = units - float64(floors[i])
		floorSum += floors[i]
	}

	target := int(math.Round(total))
	if target > 1000 {
		target = 1000
	}

	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return fracs[idx[a]] > fracs[idx[b]] })

	for k := 0; k < target-floorSum && k < len(idx); k++ {
		floors[idx[k]]++
	}
	for i, f := range floors {
		out[i] = float64(f) / 10
	}
	return out
}
