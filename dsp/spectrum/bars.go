package spectrum

import "math"

// barEdges splits bins 1..half into bars log-spaced groups. The returned
// slice has bars+1 entries; bar b covers [edges[b], edges[b+1]). Every bar
// covers at least one bin. bars must not exceed half.
func barEdges(bars, half int) []int {
	edges := make([]int, bars+1)
	edges[0] = 1
	edges[bars] = half + 1

	top := math.Log(float64(half + 1))
	for b := 1; b < bars; b++ {
		candidate := int(math.Round(math.Exp(top * float64(b) / float64(bars))))
		lo := edges[b-1] + 1
		hi := half + 1 - (bars - b)
		edges[b] = min(max(candidate, lo), hi)
	}

	return edges
}

// reduceBars averages mags over each bar linearly and normalizes the
// averages as log1p(v)/log1p(max) into dst, clamped to [0, 1]. A silent
// spectrum yields all zeros.
func reduceBars(dst []float32, mags []float64, edges []int) {
	bars := len(edges) - 1
	peak := 0.0

	for b := range bars {
		lo, hi := edges[b], edges[b+1]
		sum := 0.0
		for _, m := range mags[lo:hi] {
			sum += m
		}
		avg := sum / float64(hi-lo)
		dst[b] = float32(avg)
		peak = max(peak, avg)
	}

	if peak <= 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		clear(dst[:bars])
		return
	}

	den := math.Log1p(peak)
	for b := range bars {
		v := math.Log1p(float64(dst[b])) / den
		dst[b] = float32(min(max(v, 0), 1))
	}
}
