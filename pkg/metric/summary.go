package metric

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a set of build durations
type Summary struct {
	Count  int
	Mean   time.Duration
	StdDev time.Duration
	P50    time.Duration
	P95    time.Duration
	Min    time.Duration
	Max    time.Duration
}

// Summarize computes the summary of the given durations
func Summarize(durations []time.Duration) Summary {
	if len(durations) == 0 {
		return Summary{}
	}

	data := lo.Map(durations, func(d time.Duration, _ int) float64 {
		return d.Seconds()
	})
	sort.Float64s(data)

	mean, stdDev := stat.MeanStdDev(data, nil)
	if len(data) == 1 {
		stdDev = 0
	}

	return Summary{
		Count:  len(data),
		Mean:   seconds(mean),
		StdDev: seconds(stdDev),
		P50:    seconds(stat.Quantile(0.5, stat.LinInterp, data, nil)),
		P95:    seconds(stat.Quantile(0.95, stat.LinInterp, data, nil)),
		Min:    seconds(floats.Min(data)),
		Max:    seconds(floats.Max(data)),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
