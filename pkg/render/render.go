// Package render defines the boundary between the chart pipeline and the
// engines that turn one panel into pixels
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/layout"
)

// Line is a line series, NaN points leave a gap
type Line struct {
	Name   string       `json:"name"`
	Color  string       `json:"color"`
	Width  float64      `json:"width"`
	Points []core.Point `json:"points"`
}

// Histogram is a bar series colored by sign
type Histogram struct {
	Name      string                `json:"name"`
	UpColor   string                `json:"upColor"`
	DownColor string                `json:"downColor"`
	Points    []core.HistogramPoint `json:"points"`
}

// Range is a fixed value range for the vertical axis
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Margins reserve a fraction of the panel height above and below the data
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Panel is everything a renderer needs to draw one panel. Every series has
// one point per entry of Times.
type Panel struct {
	Kind     layout.PanelKind     `json:"kind"`
	Geometry layout.PanelGeometry `json:"geometry"`
	Title    string               `json:"title"`
	Times    []int64              `json:"times"`

	Candles []core.Bar `json:"candles,omitempty"`
	Volume  *Histogram `json:"volume,omitempty"`

	Lines     []Line     `json:"lines,omitempty"`
	Histogram *Histogram `json:"histogram,omitempty"`

	Range     *Range           `json:"range,omitempty"`
	Margins   Margins          `json:"margins"`
	Precision int              `json:"precision"`
	Palette   layout.Palette   `json:"palette"`
	Watermark layout.Watermark `json:"watermark"`
}

// Surface is a scoped drawing context, for example a browser tab
type Surface interface {
	// Capture draws the panel and returns a PNG of exactly the panel geometry
	Capture(ctx context.Context, panel Panel) ([]byte, error)
	Close() error
}

// Provider hands out surfaces
type Provider interface {
	Name() string
	Acquire(ctx context.Context, geometry layout.PanelGeometry) (Surface, error)
}

// ErrNoData is returned by renderers given a panel without a time axis
var ErrNoData = errors.New("panel has no data")

// Render acquires a surface for the panel, captures it and always releases
// the surface. Failures are wrapped in a core.RenderError.
func Render(ctx context.Context, provider Provider, panel Panel) (img []byte, err error) {
	if len(panel.Times) == 0 {
		return nil, &core.RenderError{Panel: string(panel.Kind), Err: ErrNoData}
	}

	surface, err := provider.Acquire(ctx, panel.Geometry)
	if err != nil {
		return nil, &core.RenderError{Panel: string(panel.Kind), Err: fmt.Errorf("acquire %s surface: %w", provider.Name(), err)}
	}

	defer func() {
		if closeErr := surface.Close(); closeErr != nil && err == nil {
			img, err = nil, &core.RenderError{Panel: string(panel.Kind), Err: fmt.Errorf("release surface: %w", closeErr)}
		}
	}()

	img, err = surface.Capture(ctx, panel)
	if err != nil {
		return nil, &core.RenderError{Panel: string(panel.Kind), Err: err}
	}

	return img, nil
}
