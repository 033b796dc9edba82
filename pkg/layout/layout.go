// Package layout derives the pixel geometry of a chart from static
// configuration. Nothing here depends on the bar data.
package layout

import (
	"fmt"
	"image"

	"github.com/samber/lo"
)

// PanelKind identifies a stacked panel
type PanelKind string

const (
	PanelPrice PanelKind = "price"
	PanelRSI   PanelKind = "rsi"
	PanelMACD  PanelKind = "macd"
)

// PanelGeometry is the size and position of one panel on the canvas
type PanelGeometry struct {
	Kind   PanelKind `json:"kind"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Top    int       `json:"top"`
	Left   int       `json:"left"`
}

// Size returns the expected panel image size
func (g PanelGeometry) Size() image.Point {
	return image.Pt(g.Width, g.Height)
}

// Rect returns the panel rectangle on the canvas
func (g PanelGeometry) Rect() image.Rectangle {
	return image.Rect(g.Left, g.Top, g.Left+g.Width, g.Top+g.Height)
}

// Plan is the geometry of a whole chart
type Plan struct {
	Config Config
	Canvas image.Point
	Panels []PanelGeometry
}

// New plans a chart with panels stacked price, RSI, MACD
func New(cfg Config) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	heights := []struct {
		kind   PanelKind
		height int
	}{
		{PanelPrice, cfg.PriceHeight},
		{PanelRSI, cfg.RSIHeight},
		{PanelMACD, cfg.MACDHeight},
	}

	plan := &Plan{Config: cfg}
	top := cfg.PaddingHeight - cfg.Gap
	left := cfg.PaddingLeft - cfg.Gap
	for _, h := range heights {
		plan.Panels = append(plan.Panels, PanelGeometry{
			Kind:   h.kind,
			Width:  cfg.Width,
			Height: h.height,
			Top:    top,
			Left:   left,
		})
		top += h.height + cfg.Gap
	}

	total := lo.SumBy(plan.Panels, func(p PanelGeometry) int { return p.Height })
	plan.Canvas = image.Pt(left+cfg.Width+cfg.PaddingRight+cfg.Gap, total+2*cfg.PaddingHeight)

	if err := plan.Check(); err != nil {
		return nil, err
	}

	return plan, nil
}

// Check reports the first panel that does not fit inside the canvas
func (p *Plan) Check() error {
	bounds := image.Rectangle{Max: p.Canvas}
	for _, g := range p.Panels {
		if !g.Rect().In(bounds) {
			return fmt.Errorf("%s panel %v lies outside the %v canvas", g.Kind, g.Rect(), bounds)
		}
	}
	return nil
}

// Panel returns the geometry of the given kind
func (p *Plan) Panel(kind PanelKind) (PanelGeometry, bool) {
	return lo.Find(p.Panels, func(g PanelGeometry) bool { return g.Kind == kind })
}
