// Package histogram provides exponential bucket generation and cumulative
// bucket counting over raw duration samples.
package histogram

import "strconv"

// BucketSet is an ordered sequence of ascending upper-bound thresholds in
// seconds. It is generated once at startup and shared read-only across all
// label keys.
type BucketSet []float64

// Exponential generates count bucket bounds starting at start, each
// subsequent bound multiplied by factor.
func Exponential(start, factor float64, count int) BucketSet {
	buckets := make(BucketSet, 0, count)
	current := start
	for i := 0; i < count; i++ {
		buckets = append(buckets, current)
		current *= factor
	}
	return buckets
}

// Cumulative returns, for each bucket bound, the number of samples less than
// or equal to that bound. A sample equal to a bound counts toward that bucket.
// Counts are recomputed from the raw samples on every call.
func (b BucketSet) Cumulative(samples []float64) []int {
	counts := make([]int, len(b))
	for _, value := range samples {
		for i, bound := range b {
			if value <= bound {
				counts[i]++
			}
		}
	}
	return counts
}

// FormatBound renders a bucket bound in its natural decimal form, never
// scientific notation, to match the text exposition convention.
func FormatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
