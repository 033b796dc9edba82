package indicator

import (
	"fmt"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/samber/lo"
)

// DefaultRSIPeriod is the look-back window used by the RSI panel
const DefaultRSIPeriod = 14

// RSI creates a Relative Strength Index indicator
func RSI(period int, mode Mode) *RSIIndicator {
	return &RSIIndicator{Period: period, Mode: mode}
}

type RSIIndicator struct {
	Period int
	Mode   Mode
	Values []core.Point
}

// Warmup returns the number of bars needed before the first value
func (r RSIIndicator) Warmup() int {
	return r.Period + 1
}

// Name returns the panel title of the indicator
func (r RSIIndicator) Name() string {
	return fmt.Sprintf("RSI (%d)", r.Period)
}

// Load computes the indicator for the dataframe. Short series yield no values.
func (r *RSIIndicator) Load(df *core.Dataframe) {
	r.Values = nil
	if r.Period <= 0 || df.Len() < r.Warmup() {
		return
	}

	if r.Mode == ModeTextbook {
		r.Values = textbookRSI(df, r.Period)
		return
	}

	r.Values = compatibleRSI(df.Close, df.Time, r.Period)
}

// compatibleRSI seeds the averages with the plain mean of the first period
// changes and then applies Wilder smoothing starting again from change
// period-1, matching the reference charts already in circulation.
func compatibleRSI(closes core.Series[float64], times []int64, period int) []core.Point {
	n := len(closes)
	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains[i-1] = diff
		} else if diff < 0 {
			losses[i-1] = -diff
		}
	}

	p := float64(period)
	avgGain := lo.Sum(gains[:period]) / p
	avgLoss := lo.Sum(losses[:period]) / p

	points := make([]core.Point, 0, n-period)
	for i := period; i < n; i++ {
		avgGain = (avgGain*(p-1) + gains[i-1]) / p
		avgLoss = (avgLoss*(p-1) + losses[i-1]) / p

		points = append(points, core.Point{Time: times[i], Value: rsiValue(avgGain, avgLoss)})
	}

	return points
}

// rsiValue is 100 when there were no losses in the window
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}
