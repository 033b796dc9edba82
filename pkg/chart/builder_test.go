package chart

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/metric"
	"github.com/raykavin/chartshot/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallLayout() layout.Config {
	cfg := layout.DefaultConfig()
	cfg.Width = 320
	cfg.PriceHeight = 160
	cfg.RSIHeight = 60
	cfg.MACDHeight = 60
	return cfg
}

func rising(n int) []core.RawBar {
	bars := make([]core.RawBar, n)
	for i := range bars {
		price := 1 + float64(i)*0.1
		bars[i] = core.NewRawBar(int64(60*(i+1)), price, price+0.05, price-0.05, price+0.04, float64(10+i))
	}
	return bars
}

// fakeProvider counts surfaces and can fail a given panel
type fakeProvider struct {
	fail     layout.PanelKind
	acquired atomic.Int32
	released atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Acquire(ctx context.Context, geometry layout.PanelGeometry) (render.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.acquired.Add(1)
	return &fakeSurface{provider: p}, nil
}

type fakeSurface struct {
	provider *fakeProvider
}

func (s *fakeSurface) Capture(ctx context.Context, panel render.Panel) ([]byte, error) {
	if panel.Kind == s.provider.fail {
		return nil, errors.New("renderer crashed")
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *fakeSurface) Close() error {
	s.provider.released.Add(1)
	return nil
}

func TestBuild(t *testing.T) {
	cfg := smallLayout()
	metrics := metric.New()

	builder, err := New(WithLayout(cfg), WithMetrics(metrics))
	require.NoError(t, err)

	t.Run("two bars", func(t *testing.T) {
		result, err := builder.Build(context.Background(), rising(2), Meta{Symbol: "HAT", Timeframe: "1m"})
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(result.Image))
		require.NoError(t, err)
		assert.Equal(t, builder.Plan().Canvas, img.Bounds().Size())

		assert.Equal(t, 2, result.Bars)
		assert.Equal(t, 3, result.Panels)
		assert.Equal(t, "gochart", result.Renderer)
		assert.Equal(t, int64(120), result.Last.Time)
		assert.Len(t, result.Durations, 6)
	})

	t.Run("enough bars for every panel", func(t *testing.T) {
		raw := rising(60)
		raw[0], raw[59] = raw[59], raw[0]

		result, err := builder.Build(context.Background(), raw, Meta{Symbol: "HAT", Timeframe: "1m", Source: "GMGN.AI"})
		require.NoError(t, err)
		assert.Equal(t, 60, result.Bars)
		assert.Equal(t, int64(3600), result.Last.Time)
		assert.Equal(t, Meta{Symbol: "HAT", Timeframe: "1m", Source: "GMGN.AI"}, result.Meta)
	})

	t.Run("max bars keeps the latest", func(t *testing.T) {
		trimmed, err := New(WithLayout(cfg), WithMaxBars(40))
		require.NoError(t, err)

		result, err := trimmed.Build(context.Background(), rising(60), Meta{Symbol: "HAT"})
		require.NoError(t, err)
		assert.Equal(t, 40, result.Bars)
		assert.Equal(t, int64(3600), result.Last.Time)
	})
}

func TestBuildErrors(t *testing.T) {
	builder, err := New(WithLayout(smallLayout()))
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := builder.Build(context.Background(), nil, Meta{})

		var stageErr *core.StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, core.StageNormalize, stageErr.Stage)
		assert.ErrorIs(t, err, core.ErrEmptySeries)
	})

	t.Run("invalid bar", func(t *testing.T) {
		raw := rising(3)
		raw[1].High = "0.1"

		_, err := builder.Build(context.Background(), raw, Meta{})

		var invalid *core.InvalidBarError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 1, invalid.Index)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := builder.Build(ctx, rising(3), Meta{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBuildRenderFailureCancelsSiblings(t *testing.T) {
	provider := &fakeProvider{fail: layout.PanelRSI}
	builder, err := New(WithLayout(smallLayout()), WithProvider(provider))
	require.NoError(t, err)

	result, err := builder.Build(context.Background(), rising(40), Meta{Symbol: "HAT"})
	assert.Nil(t, result)

	var stageErr *core.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, core.StageRender, stageErr.Stage)

	var renderErr *core.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "rsi", renderErr.Panel)

	assert.Positive(t, provider.acquired.Load())
	assert.Equal(t, provider.acquired.Load(), provider.released.Load())
}

func TestNewValidates(t *testing.T) {
	cfg := smallLayout()
	cfg.Width = 0

	_, err := New(WithLayout(cfg))

	var stageErr *core.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, core.StageLayout, stageErr.Stage)
}

func TestPanels(t *testing.T) {
	builder, err := New(WithLayout(smallLayout()), WithProvider(&fakeProvider{}))
	require.NoError(t, err)

	raw := []core.RawBar{
		core.NewRawBar(60, 2, 2.5, 1.5, 1.8, 5),
		core.NewRawBar(120, 1.8, 2.2, 1.7, 2.1, 7),
	}

	panels := make(map[layout.PanelKind]render.Panel)
	builder.provider = recorder(func(panel render.Panel) {
		panels[panel.Kind] = panel
	})

	_, err = builder.Build(context.Background(), raw, Meta{Symbol: "HAT", Timeframe: "1m"})
	require.NoError(t, err)
	require.Len(t, panels, 3)

	price := panels[layout.PanelPrice]
	assert.Equal(t, "HAT · 1m", price.Title)
	require.Len(t, price.Volume.Points, 2)
	assert.Equal(t, core.SignDown, price.Volume.Points[0].Sign)
	assert.Equal(t, core.SignUp, price.Volume.Points[1].Sign)
	assert.Equal(t, "@CHAT_AS_PNG", price.Watermark.Text)

	rsi := panels[layout.PanelRSI]
	assert.Equal(t, "RSI (14)", rsi.Title)
	assert.Equal(t, &render.Range{Min: 0, Max: 100}, rsi.Range)
	require.Len(t, rsi.Lines, 1)
	assert.Len(t, rsi.Lines[0].Points, 2)
	assert.True(t, rsi.Lines[0].Points[0].IsAbsent())

	macd := panels[layout.PanelMACD]
	assert.Equal(t, "MACD (12, 26, 9)", macd.Title)
	assert.Len(t, macd.Lines, 2)
	assert.Equal(t, render.Margins{Top: 0.3, Bottom: 0.25}, macd.Margins)
	assert.Equal(t, core.SignNone, macd.Histogram.Points[1].Sign)
	assert.Empty(t, macd.Watermark.Text)
}

// recorder captures panels and returns blank images of the panel size
type recorder func(render.Panel)

func (r recorder) Name() string { return "recorder" }

func (r recorder) Acquire(_ context.Context, geometry layout.PanelGeometry) (render.Surface, error) {
	return &recordingSurface{record: r, geometry: geometry}, nil
}

type recordingSurface struct {
	record   recorder
	geometry layout.PanelGeometry
}

var recordMu sync.Mutex

func (s *recordingSurface) Capture(_ context.Context, panel render.Panel) ([]byte, error) {
	recordMu.Lock()
	s.record(panel)
	recordMu.Unlock()
	return blank(s.geometry)
}

func (s *recordingSurface) Close() error { return nil }

func blank(geometry layout.PanelGeometry) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, geometry.Width, geometry.Height))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
