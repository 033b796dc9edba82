package chart

import (
	"github.com/raykavin/chartshot/pkg/align"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/indicator"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/render"
)

const (
	rsiPrecision = 2
	lineWidth    = 2
)

// panels describes the three panels in stack order
func (b *Builder) panels(df *core.Dataframe, aligned *align.Aligned, result *indicator.Result, meta Meta) ([]render.Panel, error) {
	palette := b.config.Palette
	panels := make([]render.Panel, 0, len(b.plan.Panels))

	for _, geometry := range b.plan.Panels {
		panel := render.Panel{
			Kind:     geometry.Kind,
			Geometry: geometry,
			Times:    df.Time,
			Palette:  palette,
		}

		switch geometry.Kind {
		case layout.PanelPrice:
			panel.Title = meta.Title()
			panel.Candles = df.Bars
			panel.Volume = &render.Histogram{
				Name:      "Volume",
				UpColor:   palette.Up,
				DownColor: palette.Down,
				Points:    volume(df.Bars),
			}
			panel.Margins = render.Margins{Top: 0.1, Bottom: 0.1}
			panel.Precision = b.config.PricePrecision
			panel.Watermark = b.config.Watermark

		case layout.PanelRSI:
			panel.Title = result.RSIName
			panel.Lines = []render.Line{{
				Name:   result.RSIName,
				Color:  palette.RSILine,
				Width:  lineWidth,
				Points: aligned.RSI,
			}}
			panel.Range = &render.Range{Min: 0, Max: 100}
			panel.Margins = render.Margins{Top: 0.1, Bottom: 0.1}
			panel.Precision = rsiPrecision

		case layout.PanelMACD:
			panel.Title = result.MACDName
			panel.Histogram = &render.Histogram{
				Name:      "Histogram",
				UpColor:   palette.Up,
				DownColor: palette.Down,
				Points:    aligned.Histogram,
			}
			panel.Lines = []render.Line{
				{Name: "MACD", Color: palette.MACDLine, Width: lineWidth, Points: aligned.MACD},
				{Name: "Signal", Color: palette.SignalLine, Width: lineWidth, Points: aligned.Signal},
			}
			panel.Margins = render.Margins{Top: 0.3, Bottom: 0.25}
			panel.Precision = b.config.ValuePrecision

		default:
			return nil, &core.CompositionError{Panel: -1, Reason: "unknown panel kind " + string(geometry.Kind)}
		}

		panels = append(panels, panel)
	}

	return panels, nil
}

// volume colors each bar by its candle direction
func volume(bars []core.Bar) []core.HistogramPoint {
	points := make([]core.HistogramPoint, len(bars))
	for i, bar := range bars {
		sign := core.SignDown
		if bar.IsUp() {
			sign = core.SignUp
		}
		points[i] = core.HistogramPoint{
			Point: core.Point{Time: bar.Time, Value: bar.Volume},
			Sign:  sign,
		}
	}
	return points
}
