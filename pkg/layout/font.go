package layout

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	regularOnce sync.Once
	regular     *opentype.Font
	regularErr  error
)

// Regular returns the parsed Go Regular font shared by the overlay and the
// measurer
func Regular() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// NewFace returns a Go Regular face of the given pixel size. Faces are not
// safe for concurrent use.
func NewFace(size float64) (font.Face, error) {
	f, err := Regular()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// FaceMeasurer measures strings with a font face
type FaceMeasurer struct {
	face font.Face
}

// NewMeasurer builds a measurer for the configured font size
func NewMeasurer(size float64) (*FaceMeasurer, error) {
	face, err := NewFace(size)
	if err != nil {
		return nil, err
	}
	return &FaceMeasurer{face: face}, nil
}

// Measure implements Measurer
func (m *FaceMeasurer) Measure(text string) int {
	return font.MeasureString(m.face, text).Ceil()
}

// Close releases the face
func (m *FaceMeasurer) Close() error {
	return m.face.Close()
}
