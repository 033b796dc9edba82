package gochart

import (
	"math"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/render"
	"gonum.org/v1/gonum/floats"
)

const defaultStep = 60

// timeStep returns the average spacing of the time axis in seconds
func timeStep(times []int64) float64 {
	if len(times) < 2 {
		return defaultStep
	}
	step := float64(times[len(times)-1]-times[0]) / float64(len(times)-1)
	if step <= 0 {
		return defaultStep
	}
	return step
}

// xRange pads the axis by half a step on each side so the first and last
// bars are fully visible. It is never empty, even for a single bar.
func xRange(times []int64) (lo, hi float64) {
	step := timeStep(times)
	return float64(times[0]) - step/2, float64(times[len(times)-1]) + step/2
}

// yRange returns the vertical range of the panel with margins applied
func yRange(panel render.Panel) (lo, hi float64) {
	if panel.Range != nil {
		return withMargins(panel.Range.Min, panel.Range.Max, panel.Margins)
	}

	values := panelValues(panel)
	if len(values) == 0 {
		return withMargins(-1, 1, panel.Margins)
	}

	return withMargins(floats.Min(values), floats.Max(values), panel.Margins)
}

func panelValues(panel render.Panel) []float64 {
	values := make([]float64, 0, len(panel.Times)*2)
	for _, bar := range panel.Candles {
		values = append(values, bar.Low, bar.High)
	}

	for _, line := range panel.Lines {
		for _, point := range line.Points {
			values = append(values, point.Value)
		}
	}

	if panel.Histogram != nil {
		present := false
		for _, point := range panel.Histogram.Points {
			values = append(values, point.Value)
			present = present || !point.IsAbsent()
		}
		if present {
			values = append(values, 0)
		}
	}

	return core.Finite(values)
}

func withMargins(lo, hi float64, margins render.Margins) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = math.Abs(hi) * 0.01
		if span == 0 {
			span = 1
		}
		lo, hi = lo-span/2, hi+span/2
	}

	usable := 1 - margins.Top - margins.Bottom
	if usable <= 0.05 {
		usable = 0.05
	}

	total := (hi - lo) / usable
	return lo - total*margins.Bottom, hi + total*margins.Top
}
