package gochart

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"testing"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geometry(kind layout.PanelKind, w, h int) layout.PanelGeometry {
	return layout.PanelGeometry{Kind: kind, Width: w, Height: h}
}

func pricePanel(bars []core.Bar) render.Panel {
	times := make([]int64, len(bars))
	volume := make([]core.HistogramPoint, len(bars))
	for i, b := range bars {
		times[i] = b.Time
		volume[i] = core.NewHistogramPoint(b.Time, b.Volume)
	}

	palette := layout.DefaultConfig().Palette
	return render.Panel{
		Kind:      layout.PanelPrice,
		Geometry:  geometry(layout.PanelPrice, 300, 150),
		Title:     "HAT · 1m",
		Times:     times,
		Candles:   bars,
		Volume:    &render.Histogram{Name: "volume", UpColor: palette.Up, DownColor: palette.Down, Points: volume},
		Margins:   render.Margins{Top: 0.1, Bottom: 0.1},
		Precision: 6,
		Palette:   palette,
		Watermark: layout.DefaultConfig().Watermark,
	}
}

func capture(t *testing.T, panel render.Panel) []byte {
	t.Helper()
	img, err := render.Render(context.Background(), New(), panel)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, panel.Geometry.Size(), decoded.Bounds().Size())
	return img
}

func TestCapturePrice(t *testing.T) {
	t.Run("two bars", func(t *testing.T) {
		capture(t, pricePanel([]core.Bar{
			{Time: 60, Open: 1, High: 1.2, Low: 0.9, Close: 1.1, Volume: 10},
			{Time: 120, Open: 1.1, High: 1.15, Low: 0.95, Close: 1, Volume: 5},
		}))
	})

	t.Run("single flat bar", func(t *testing.T) {
		capture(t, pricePanel([]core.Bar{{Time: 60, Open: 1, High: 1, Low: 1, Close: 1}}))
	})
}

func TestCaptureOscillators(t *testing.T) {
	times := []int64{60, 120, 180}
	absent := []core.Point{{Time: 60, Value: math.NaN()}, {Time: 120, Value: math.NaN()}, {Time: 180, Value: math.NaN()}}
	palette := layout.DefaultConfig().Palette

	t.Run("rsi without values", func(t *testing.T) {
		capture(t, render.Panel{
			Kind:     layout.PanelRSI,
			Geometry: geometry(layout.PanelRSI, 300, 80),
			Times:    times,
			Lines:    []render.Line{{Name: "RSI", Color: palette.RSILine, Width: 2, Points: absent}},
			Range:    &render.Range{Min: 0, Max: 100},
			Palette:  palette,
		})
	})

	t.Run("macd without values", func(t *testing.T) {
		hist := []core.HistogramPoint{
			core.NewHistogramPoint(60, math.NaN()),
			core.NewHistogramPoint(120, math.NaN()),
			core.NewHistogramPoint(180, math.NaN()),
		}
		capture(t, render.Panel{
			Kind:      layout.PanelMACD,
			Geometry:  geometry(layout.PanelMACD, 300, 80),
			Times:     times,
			Lines:     []render.Line{{Name: "MACD", Points: absent}, {Name: "Signal", Points: absent}},
			Histogram: &render.Histogram{Name: "Histogram", Points: hist},
			Margins:   render.Margins{Top: 0.3, Bottom: 0.25},
			Palette:   palette,
		})
	})

	t.Run("macd with values", func(t *testing.T) {
		capture(t, render.Panel{
			Kind:     layout.PanelMACD,
			Geometry: geometry(layout.PanelMACD, 300, 80),
			Times:    times,
			Lines: []render.Line{{Name: "MACD", Color: palette.MACDLine, Points: []core.Point{
				{Time: 60, Value: math.NaN()}, {Time: 120, Value: 0.5}, {Time: 180, Value: -0.25},
			}}},
			Histogram: &render.Histogram{UpColor: palette.Up, DownColor: palette.Down, Points: []core.HistogramPoint{
				core.NewHistogramPoint(60, math.NaN()),
				core.NewHistogramPoint(120, 0.2),
				core.NewHistogramPoint(180, -0.1),
			}},
			Palette: palette,
		})
	})
}

func TestRenderWithoutTimes(t *testing.T) {
	_, err := render.Render(context.Background(), New(), render.Panel{Kind: layout.PanelRSI})
	assert.ErrorIs(t, err, render.ErrNoData)
}

func TestClosedSurface(t *testing.T) {
	surface, err := New().Acquire(context.Background(), geometry(layout.PanelRSI, 10, 10))
	require.NoError(t, err)
	require.NoError(t, surface.Close())

	_, err = surface.Capture(context.Background(), render.Panel{Times: []int64{1}})
	assert.ErrorIs(t, err, errClosed)
}

func TestRanges(t *testing.T) {
	lo, hi := xRange([]int64{100})
	assert.Equal(t, 70.0, lo)
	assert.Equal(t, 130.0, hi)

	lo, hi = yRange(render.Panel{Range: &render.Range{Min: 0, Max: 100}, Margins: render.Margins{Top: 0.1, Bottom: 0.1}})
	assert.InDelta(t, -12.5, lo, 1e-9)
	assert.InDelta(t, 112.5, hi, 1e-9)

	lo, hi = yRange(render.Panel{})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 1.0, hi)
}
