// Package gochart renders panels in pure Go with wcharczuk/go-chart
package gochart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/render"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
)

// volumeArea is the fraction of the price panel used by volume bars
const volumeArea = 0.2

var errClosed = errors.New("surface already closed")

// Provider renders panels on in-memory raster canvases
type Provider struct {
	axisFontSize float64
	titlePadding int
	log          logger.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithAxisFontSize sets the font size of the axis labels
func WithAxisFontSize(size float64) Option {
	return func(p *Provider) {
		p.axisFontSize = size
	}
}

// WithTitlePadding reserves space above the plot for the overlay titles
func WithTitlePadding(padding int) Option {
	return func(p *Provider) {
		p.titlePadding = padding
	}
}

// WithLogger sets the provider logger
func WithLogger(log logger.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// New creates a go-chart provider
func New(options ...Option) *Provider {
	provider := &Provider{
		axisFontSize: 8,
		titlePadding: 24,
		log:          logger.Nop(),
	}

	for _, option := range options {
		option(provider)
	}

	return provider
}

// Name implements render.Provider
func (p *Provider) Name() string {
	return "gochart"
}

// Acquire implements render.Provider
func (p *Provider) Acquire(ctx context.Context, geometry layout.PanelGeometry) (render.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &surface{provider: p, geometry: geometry}, nil
}

type surface struct {
	provider *Provider
	geometry layout.PanelGeometry
	buf      *bytes.Buffer
	closed   bool
}

// Capture implements render.Surface
func (s *surface) Capture(ctx context.Context, panel render.Panel) ([]byte, error) {
	if s.closed {
		return nil, errClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	panel.Geometry = s.geometry
	c := s.provider.chart(panel)

	s.buf = &bytes.Buffer{}
	if err := c.Render(chart.PNG, s.buf); err != nil {
		return nil, fmt.Errorf("go-chart: %w", err)
	}

	s.provider.log.WithFields(map[string]any{
		"panel": panel.Kind,
		"bytes": s.buf.Len(),
	}).Trace("panel captured")

	return s.buf.Bytes(), nil
}

// Close implements render.Surface
func (s *surface) Close() error {
	s.closed = true
	s.buf = nil
	return nil
}

func (p *Provider) chart(panel render.Panel) chart.Chart {
	palette := panel.Palette
	background := color(palette.Background)
	step := timeStep(panel.Times)

	xmin, xmax := xRange(panel.Times)
	ymin, ymax := yRange(panel)

	axis := chart.Style{
		FontColor:   color(palette.Text),
		FontSize:    p.axisFontSize,
		StrokeColor: color(palette.Border),
		StrokeWidth: 1,
	}
	grid := chart.Style{
		StrokeColor: color(palette.Grid),
		StrokeWidth: 1,
	}

	return chart.Chart{
		Width:  panel.Geometry.Width,
		Height: panel.Geometry.Height,
		Background: chart.Style{
			FillColor: background,
			Padding:   chart.Box{Top: p.titlePadding, Left: 4, Right: 4, Bottom: 4, IsSet: true},
		},
		Canvas: chart.Style{FillColor: background},
		XAxis: chart.XAxis{
			Style:          axis,
			ValueFormatter: timeFormatter(panel.Times),
			Range:          &chart.ContinuousRange{Min: xmin, Max: xmax},
			GridMajorStyle: grid,
		},
		YAxis: chart.YAxis{
			Style:          axis,
			ValueFormatter: valueFormatter(panel.Precision),
			Range:          &chart.ContinuousRange{Min: ymin, Max: ymax},
			GridMajorStyle: grid,
		},
		Series:   p.series(panel, step),
		Elements: []chart.Renderable{watermark(panel.Watermark)},
	}
}

func (p *Provider) series(panel render.Panel, step float64) []chart.Series {
	var series []chart.Series

	if panel.Volume != nil {
		maxValue := 0.0
		if values := core.Finite(histogramValues(panel.Volume.Points)); len(values) > 0 {
			maxValue = floats.Max(values)
		}
		series = append(series, volumeSeries{
			seriesBase: seriesBase{name: panel.Volume.Name},
			points:     panel.Volume.Points,
			step:       step,
			area:       volumeArea,
			maxValue:   maxValue,
			up:         color(panel.Volume.UpColor),
			down:       color(panel.Volume.DownColor),
		})
	}

	if len(panel.Candles) > 0 {
		series = append(series, candleSeries{
			seriesBase: seriesBase{name: panel.Title},
			bars:       panel.Candles,
			step:       step,
			up:         color(panel.Palette.Up),
			down:       color(panel.Palette.Down),
		})
	}

	if panel.Histogram != nil {
		series = append(series, histogramSeries{
			seriesBase: seriesBase{name: panel.Histogram.Name},
			points:     panel.Histogram.Points,
			step:       step,
			up:         color(panel.Histogram.UpColor),
			down:       color(panel.Histogram.DownColor),
		})
	}

	for _, line := range panel.Lines {
		width := line.Width
		if width <= 0 {
			width = 2
		}
		series = append(series, lineSeries{
			seriesBase: seriesBase{name: line.Name},
			points:     line.Points,
			color:      color(line.Color),
			width:      width,
		})
	}

	// go-chart refuses to render without a series
	if len(series) == 0 {
		series = append(series, lineSeries{seriesBase: seriesBase{name: panel.Title}})
	}

	return series
}

func histogramValues(points []core.HistogramPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

func watermark(mark layout.Watermark) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		if mark.Text == "" {
			return
		}

		style := chart.Style{
			Font:      defaults.Font,
			FontSize:  mark.FontSize,
			FontColor: color(mark.Color),
		}

		size := chart.Draw.MeasureText(r, mark.Text, style)
		x := box.Left + (box.Width()-size.Width())/2
		y := box.Top + (box.Height()+size.Height())/2
		chart.Draw.Text(r, mark.Text, x, y, style)
	}
}

func timeFormatter(times []int64) chart.ValueFormatter {
	layoutStr := "15:04"
	if len(times) > 1 && times[len(times)-1]-times[0] > int64(48*time.Hour/time.Second) {
		layoutStr = "Jan 02"
	}

	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return time.Unix(int64(f), 0).UTC().Format(layoutStr)
		}
		return ""
	}
}

func valueFormatter(precision int) chart.ValueFormatter {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', precision, 64)
		}
		return ""
	}
}

func color(hex string) drawing.Color {
	c := layout.ColorOf(hex)
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
