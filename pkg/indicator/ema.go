package indicator

// EMA returns the exponential moving average of values seeded with the first
// sample, k = 2/(period+1). The output has the same length as the input.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}

	k := 2 / (float64(period) + 1)
	result := make([]float64, len(values))
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = values[i]*k + result[i-1]*(1-k)
	}

	return result
}
