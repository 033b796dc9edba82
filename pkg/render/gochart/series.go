package gochart

import (
	"math"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// seriesBase implements the parts of chart.Series shared by every custom series
type seriesBase struct {
	name string
}

func (s seriesBase) GetName() string { return s.name }
func (s seriesBase) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (s seriesBase) GetStyle() chart.Style { return chart.Style{} }
func (s seriesBase) Validate() error { return nil }

// project maps values to canvas pixels
type project struct {
	box    chart.Box
	xrange chart.Range
	yrange chart.Range
}

func (p project) x(ts int64) int {
	return p.box.Left + p.xrange.Translate(float64(ts))
}

func (p project) y(v float64) int {
	return p.box.Bottom - p.yrange.Translate(v)
}

// barWidth returns the body width for bars spaced step seconds apart
func (p project) barWidth(step float64) int {
	delta := p.xrange.GetDelta()
	if delta <= 0 {
		return 1
	}
	width := int(float64(p.box.Width()) * step / delta * 0.7)
	return max(width, 1)
}

type candleSeries struct {
	seriesBase
	bars     []core.Bar
	step     float64
	up, down drawing.Color
}

func (s candleSeries) Render(r chart.Renderer, box chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	p := project{box, xrange, yrange}
	half := p.barWidth(s.step) / 2

	for _, bar := range s.bars {
		fill := s.down
		if bar.IsUp() {
			fill = s.up
		}

		x := p.x(bar.Time)
		r.SetStrokeColor(fill)
		r.SetStrokeWidth(1)
		r.MoveTo(x, p.y(bar.High))
		r.LineTo(x, p.y(bar.Low))
		r.Stroke()
		r.ResetStyle()

		top := p.y(math.Max(bar.Open, bar.Close))
		bottom := p.y(math.Min(bar.Open, bar.Close))
		if bottom-top < 1 {
			bottom = top + 1
		}

		chart.Draw.Box(r, chart.Box{Top: top, Left: x - half, Right: x + half, Bottom: bottom}, chart.Style{
			FillColor:   fill,
			StrokeColor: fill,
			StrokeWidth: 1,
		})
	}
}

// volumeSeries draws volume bars in the bottom fraction of the canvas on
// their own scale
type volumeSeries struct {
	seriesBase
	points   []core.HistogramPoint
	step     float64
	area     float64
	maxValue float64
	up, down drawing.Color
}

func (s volumeSeries) Render(r chart.Renderer, box chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	if s.maxValue <= 0 {
		return
	}

	p := project{box, xrange, yrange}
	half := p.barWidth(s.step) / 2
	height := float64(box.Height()) * s.area

	for _, point := range s.points {
		if point.IsAbsent() || point.Value <= 0 {
			continue
		}

		fill := s.up
		if point.Sign == core.SignDown {
			fill = s.down
		}

		x := p.x(point.Time)
		top := box.Bottom - int(point.Value/s.maxValue*height)
		chart.Draw.Box(r, chart.Box{Top: top, Left: x - half, Right: x + half, Bottom: box.Bottom}, chart.Style{
			FillColor:   fill,
			StrokeColor: fill,
			StrokeWidth: 1,
		})
	}
}

// histogramSeries draws signed bars from the zero line
type histogramSeries struct {
	seriesBase
	points   []core.HistogramPoint
	step     float64
	up, down drawing.Color
}

func (s histogramSeries) Render(r chart.Renderer, box chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	p := project{box, xrange, yrange}
	half := p.barWidth(s.step) / 2
	zero := min(max(p.y(0), box.Top), box.Bottom)

	for _, point := range s.points {
		if point.IsAbsent() {
			continue
		}

		fill := s.up
		if point.Sign == core.SignDown {
			fill = s.down
		}

		x := p.x(point.Time)
		y := p.y(point.Value)
		top, bottom := min(y, zero), max(y, zero)
		if bottom == top {
			bottom++
		}

		chart.Draw.Box(r, chart.Box{Top: top, Left: x - half, Right: x + half, Bottom: bottom}, chart.Style{
			FillColor:   fill,
			StrokeColor: fill,
			StrokeWidth: 1,
		})
	}
}

// lineSeries connects consecutive present points, absent points break the line
type lineSeries struct {
	seriesBase
	points []core.Point
	color  drawing.Color
	width  float64
}

func (s lineSeries) Render(r chart.Renderer, box chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	p := project{box, xrange, yrange}

	r.SetStrokeColor(s.color)
	r.SetStrokeWidth(s.width)
	defer r.ResetStyle()

	pen := false
	segments := 0
	for _, point := range s.points {
		if point.IsAbsent() {
			pen = false
			continue
		}

		x, y := p.x(point.Time), p.y(point.Value)
		if !pen {
			r.MoveTo(x, y)
			pen = true
			continue
		}

		r.LineTo(x, y)
		segments++
	}

	if segments > 0 {
		r.Stroke()
	}
}
