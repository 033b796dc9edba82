package layout

import (
	"image"
	"image/color"
	"testing"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMeasurer int

func (f fixedMeasurer) Measure(text string) int { return len(text) * int(f) }

func TestNew(t *testing.T) {
	plan, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, image.Pt(1224, 824), plan.Canvas)
	require.Len(t, plan.Panels, 3)

	tops := []int{8, 612, 716}
	kinds := []PanelKind{PanelPrice, PanelRSI, PanelMACD}
	for i, panel := range plan.Panels {
		assert.Equal(t, kinds[i], panel.Kind)
		assert.Equal(t, tops[i], panel.Top)
		assert.Equal(t, 16, panel.Left)
		assert.Equal(t, 1200, panel.Width)
	}

	assert.Equal(t, image.Rect(16, 612, 1216, 712), plan.Panels[1].Rect())
}

func TestNewFollowsConfiguredPadding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PaddingHeight = 20
	cfg.Gap = 10
	cfg.PriceHeight = 300
	cfg.RSIHeight = 80
	cfg.MACDHeight = 90

	plan, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, 10, plan.Panels[0].Top)
	assert.Equal(t, 10+300+10, plan.Panels[1].Top)
	assert.Equal(t, 10+300+10+80+10, plan.Panels[2].Top)
	assert.Equal(t, image.Pt(10+1200+4+10, 510), plan.Canvas)
}

func TestNewKeepsPanelsInsideCanvas(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PaddingLeft = 40
	cfg.PaddingRight = 24

	plan, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, plan.Check())

	assert.Equal(t, 36, plan.Panels[0].Left)
	assert.Equal(t, image.Pt(36+1200+24+4, 824), plan.Canvas)
	for _, panel := range plan.Panels {
		assert.True(t, panel.Rect().In(image.Rectangle{Max: plan.Canvas}), panel.Kind)
	}
}

func TestPlanCheck(t *testing.T) {
	plan, err := New(DefaultConfig())
	require.NoError(t, err)

	plan.Canvas.X = 1000
	assert.ErrorContains(t, plan.Check(), "price panel")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RSIHeight = 0
	cfg.PaddingHeight = 2
	cfg.Palette.Background = "blue"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rsi_height")
	assert.Contains(t, err.Error(), "paddings")
	assert.Contains(t, err.Error(), "palette background")

	_, err = New(cfg)
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#131722", color.NRGBA{R: 0x13, G: 0x17, B: 0x22, A: 0xff}},
		{"#ffffff1a", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x1a}},
		{"fff", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseColor("#12345")
	assert.Error(t, err)
	assert.Equal(t, color.NRGBA{A: 0xff}, ColorOf("nope"))
}

func TestOverlay(t *testing.T) {
	plan, err := New(DefaultConfig())
	require.NoError(t, err)

	last := core.Bar{Open: 1, High: 2, Low: 0.5, Close: 1.5}
	items := plan.Overlay(fixedMeasurer(6), Titles{Price: "HAT · 1m", RSI: "RSI (14)", MACD: "MACD (12, 26, 9)"}, last)
	require.Len(t, items, 11)

	assert.Equal(t, TextItem{Text: "HAT · 1m", X: 28, Y: 20, Color: "#787B86", Size: 12}, items[0])
	assert.Equal(t, 624, items[1].Y)
	assert.Equal(t, 728, items[2].Y)

	// title is 9 bytes wide with the middle dot
	x := 28 + len("HAT · 1m")*6 + 12
	assert.Equal(t, TextItem{Text: "O: ", X: x, Y: 20, Color: "#787B86", Size: 12}, items[3])
	assert.Equal(t, "1.00000000", items[4].Text)
	assert.Equal(t, "#ef5350", items[4].Color)
	assert.Equal(t, x+18, items[4].X)
	assert.Equal(t, x+18+10*7+12, items[5].X)
	assert.Equal(t, "C: ", items[9].Text)
	assert.Equal(t, "1.50000000", items[10].Text)
}

func TestFaceMeasurer(t *testing.T) {
	m, err := NewMeasurer(12)
	require.NoError(t, err)
	defer m.Close()

	short := m.Measure("RSI")
	long := m.Measure("RSI (14)")
	assert.Positive(t, short)
	assert.Greater(t, long, short)
	assert.Zero(t, m.Measure(""))
}
