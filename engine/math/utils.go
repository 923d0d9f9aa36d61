package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// ClampOrDefault returns def when f is the zero value, f clamped to
// [low, high] otherwise.
func ClampOrDefault[T constraints.Integer | constraints.Float](f, def, low, high T) T {
	if f == 0 {
		return def
	}
	return Clamp(f, low, high)
}
