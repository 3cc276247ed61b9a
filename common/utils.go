package common

import "cmp"

// Clamp limits v to the closed range [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// CeilDiv returns ceil(n / d) for positive d.
func CeilDiv(n, d int) int {
	return (n + d - 1) / d
}
