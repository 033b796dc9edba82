package browser

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPanel() render.Panel {
	cfg := layout.DefaultConfig()
	return render.Panel{
		Kind:     layout.PanelRSI,
		Geometry: layout.PanelGeometry{Kind: layout.PanelRSI, Width: 1200, Height: 100, Top: 612, Left: 16},
		Title:    "RSI (14)",
		Times:    []int64{60, 120},
		Lines: []render.Line{{
			Name:  "RSI",
			Color: cfg.Palette.RSILine,
			Width: 2,
			Points: []core.Point{
				{Time: 60, Value: math.NaN()},
				{Time: 120, Value: 55.5},
			},
		}},
		Range:   &render.Range{Min: 0, Max: 100},
		Margins: render.Margins{Top: 0.1, Bottom: 0.1},
		Palette: cfg.Palette,
	}
}

func TestPageBuild(t *testing.T) {
	p, err := newPanelPage(false)
	require.NoError(t, err)

	html, err := p.build(testPanel(), "https://example.com/lwc.js")
	require.NoError(t, err)

	assert.Contains(t, html, `src="https://example.com/lwc.js"`)
	assert.Contains(t, html, "width: 1200px")
	assert.Contains(t, html, "height: 100px")
	assert.Contains(t, html, `{"time":60}`)
	assert.Contains(t, html, `{"time":120,"value":55.5}`)
	assert.Contains(t, html, "createChart")
	assert.NotContains(t, html, "{{")
}

func TestPageDataIsValidJSON(t *testing.T) {
	p, err := newPanelPage(true)
	require.NoError(t, err)

	html, err := p.build(testPanel(), DefaultLibraryURL)
	require.NoError(t, err)

	const prefix = "window.PANEL = "
	start := strings.Index(html, prefix)
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(html[start:], ";</script>")
	require.Greater(t, end, 0)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(html[start+len(prefix):start+end]), &decoded))
	assert.Equal(t, "rsi", decoded["kind"])
	assert.Equal(t, "RSI (14)", decoded["title"])
}

func TestDebugScriptIsNotMinified(t *testing.T) {
	minified, err := newPanelPage(false)
	require.NoError(t, err)
	debug, err := newPanelPage(true)
	require.NoError(t, err)

	assert.Less(t, len(minified.script), len(debug.script))
	assert.Contains(t, string(debug.script), "precisionFormat")
}

func TestProviderClosedSurface(t *testing.T) {
	provider, err := New()
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "browser", provider.Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = provider.Acquire(ctx, layout.PanelGeometry{Width: 10, Height: 10})
	assert.ErrorIs(t, err, context.Canceled)
}
