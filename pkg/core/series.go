package core

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Series is a time series of ordered values
type Series[T constraints.Ordered] []T

// Values returns the underlying slice of values
func (s Series[T]) Values() []T {
	return s
}

// From returns the values starting at index, or an empty series when the
// index is past the end
func (s Series[T]) From(index int) Series[T] {
	if index >= len(s) {
		return Series[T]{}
	}
	return s[index:]
}

// Finite drops NaN and infinite values from a float series
func Finite(s Series[float64]) []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
