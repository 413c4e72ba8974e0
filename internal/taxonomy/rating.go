package taxonomy

import "math"

// ValidRating reports whether v is an acceptable rating value.
func ValidRating(v int) bool {
	return v >= 1 && v <= 10
}

// Mean is the arithmetic mean of values, or nil for an empty slice.
func Mean(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	m := float64(sum) / float64(len(values))
	return &m
}

// RoundDisplay rounds a mean to one decimal place, half up.
func RoundDisplay(mean float64) float64 {
	return math.Floor(mean*10+0.5) / 10
}

// DisplayRating substitutes 0 for an unrated design.
func DisplayRating(mean *float64) float64 {
	if mean == nil {
		return 0
	}
	return RoundDisplay(*mean)
}

// Bucket is the integer rating bucket a mean falls into, rounding half up.
// It agrees with the store-side predicate mean >= n-0.5 AND mean < n+0.5.
func Bucket(mean float64) int {
	return int(math.Floor(mean + 0.5))
}

// BucketBounds returns the half-open mean range [lo, hi) of bucket n.
func BucketBounds(n int) (lo, hi float64) {
	return float64(n) - 0.5, float64(n) + 0.5
}
