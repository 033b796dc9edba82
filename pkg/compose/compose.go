// Package compose stacks rendered panels onto one canvas and blends the text
// overlay on top
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/logger"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Composer merges panel images following a layout plan
type Composer struct {
	log         logger.Logger
	compression png.CompressionLevel
}

// Option configures a Composer
type Option func(*Composer)

// WithLogger sets the composer logger
func WithLogger(log logger.Logger) Option {
	return func(c *Composer) {
		c.log = log
	}
}

// WithCompression sets the PNG compression level of the final image
func WithCompression(level png.CompressionLevel) Option {
	return func(c *Composer) {
		c.compression = level
	}
}

// New creates a Composer
func New(options ...Option) *Composer {
	composer := &Composer{
		log:         logger.Nop(),
		compression: png.DefaultCompression,
	}

	for _, option := range options {
		option(composer)
	}

	return composer
}

// Compose decodes the panels, checks them against the plan, stacks them over
// the background in plan order and blends the text overlay. The result is a
// PNG.
func (c *Composer) Compose(panels [][]byte, plan *layout.Plan, overlay []layout.TextItem) ([]byte, error) {
	if len(panels) != len(plan.Panels) {
		return nil, &core.CompositionError{
			Panel:  -1,
			Reason: fmt.Sprintf("got %d panel images for %d panels", len(panels), len(plan.Panels)),
		}
	}

	for i, geometry := range plan.Panels {
		if !geometry.Rect().In(image.Rectangle{Max: plan.Canvas}) {
			return nil, &core.CompositionError{
				Panel:  i,
				Reason: fmt.Sprintf("%s panel %v does not fit the %v canvas", geometry.Kind, geometry.Rect(), plan.Canvas),
			}
		}
	}

	canvas := image.NewRGBA(image.Rectangle{Max: plan.Canvas})
	background := layout.ColorOf(plan.Config.Palette.Background)
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for i, data := range panels {
		geometry := plan.Panels[i]

		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &core.CompositionError{Panel: i, Reason: "decode panel image", Err: err}
		}

		if size := img.Bounds().Size(); size != geometry.Size() {
			return nil, &core.CompositionError{
				Panel:  i,
				Reason: fmt.Sprintf("%s panel is %v, layout expects %v", geometry.Kind, size, geometry.Size()),
			}
		}

		draw.Draw(canvas, geometry.Rect(), img, img.Bounds().Min, draw.Over)
	}

	if len(overlay) > 0 {
		layer, err := textLayer(plan.Canvas, overlay)
		if err != nil {
			return nil, &core.CompositionError{Panel: -1, Reason: "draw text overlay", Err: err}
		}
		draw.Draw(canvas, canvas.Bounds(), layer, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: c.compression}
	if err := encoder.Encode(&buf, canvas); err != nil {
		return nil, &core.CompositionError{Panel: -1, Reason: "encode png", Err: err}
	}

	c.log.WithFields(map[string]any{
		"panels": len(panels),
		"texts":  len(overlay),
		"bytes":  buf.Len(),
	}).Debug("chart composed")

	return buf.Bytes(), nil
}

// textLayer draws every item on a transparent image of the canvas size
func textLayer(size image.Point, items []layout.TextItem) (*image.RGBA, error) {
	layer := image.NewRGBA(image.Rectangle{Max: size})
	faces := make(map[float64]font.Face)
	defer func() {
		for _, face := range faces {
			face.Close()
		}
	}()

	for _, item := range items {
		face, ok := faces[item.Size]
		if !ok {
			var err error
			face, err = layout.NewFace(item.Size)
			if err != nil {
				return nil, err
			}
			faces[item.Size] = face
		}

		drawer := font.Drawer{
			Dst:  layer,
			Src:  image.NewUniform(layout.ColorOf(item.Color)),
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.I(item.X), Y: fixed.I(item.Y)},
		}
		drawer.DrawString(item.Text)
	}

	return layer, nil
}
