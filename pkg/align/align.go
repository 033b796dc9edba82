// Package align maps indicator outputs onto the canonical time axis
package align

import (
	"fmt"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/indicator"
)

// Series has exactly one point per canonical timestamp, in axis order
type Series []core.Point

// Present returns the number of points holding a value
func (s Series) Present() int {
	count := 0
	for _, p := range s {
		if !p.IsAbsent() {
			count++
		}
	}
	return count
}

// Values returns the point values, NaN where absent
func (s Series) Values() core.Series[float64] {
	values := make(core.Series[float64], len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// HistogramSeries is the histogram counterpart of Series
type HistogramSeries []core.HistogramPoint

// Values returns the bar values, NaN where absent
func (s HistogramSeries) Values() core.Series[float64] {
	values := make(core.Series[float64], len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Aligned groups every oscillator series of a chart
type Aligned struct {
	RSI       Series
	MACD      Series
	Signal    Series
	Histogram HistogramSeries
}

func index(axis []int64) map[int64]int {
	slots := make(map[int64]int, len(axis))
	for i, ts := range axis {
		slots[ts] = i
	}
	return slots
}

// Align places points on the axis. Timestamps without a point become absent;
// a point whose timestamp is not on the axis is an error.
func Align(axis []int64, points []core.Point) (Series, error) {
	slots := index(axis)
	aligned := make(Series, len(axis))
	for i, ts := range axis {
		aligned[i] = core.Point{Time: ts, Value: core.Absent()}
	}

	for _, p := range points {
		i, ok := slots[p.Time]
		if !ok {
			return nil, fmt.Errorf("%w: %d", core.ErrUnknownTimestamp, p.Time)
		}
		aligned[i] = p
	}

	return aligned, nil
}

// AlignHistogram places histogram points on the axis keeping their sign
func AlignHistogram(axis []int64, points []core.HistogramPoint) (HistogramSeries, error) {
	slots := index(axis)
	aligned := make(HistogramSeries, len(axis))
	for i, ts := range axis {
		aligned[i] = core.NewHistogramPoint(ts, core.Absent())
	}

	for _, p := range points {
		i, ok := slots[p.Time]
		if !ok {
			return nil, fmt.Errorf("%w: %d", core.ErrUnknownTimestamp, p.Time)
		}
		aligned[i] = p
	}

	return aligned, nil
}

// Panels aligns every indicator output of result against the dataframe
func Panels(df *core.Dataframe, result *indicator.Result) (*Aligned, error) {
	var (
		aligned Aligned
		err     error
	)

	if aligned.RSI, err = Align(df.Time, result.RSI); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	if aligned.MACD, err = Align(df.Time, result.MACD); err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	if aligned.Signal, err = Align(df.Time, result.Signal); err != nil {
		return nil, fmt.Errorf("signal: %w", err)
	}
	if aligned.Histogram, err = AlignHistogram(df.Time, result.Histogram); err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}

	return &aligned, nil
}
