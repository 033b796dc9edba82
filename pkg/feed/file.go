package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raykavin/chartshot/pkg/core"
)

// File is a core.Feeder reading a CSV or JSON file chosen by extension
type File struct {
	Path string
}

// Bars implements core.Feeder
func (f File) Bars(ctx context.Context) ([]core.RawBar, error) {
	doc, err := f.Read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Bars, nil
}

// Read loads the whole document
func (f File) Read(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(f.Path))
	if !Supported(ext) {
		return nil, fmt.Errorf("%s: unsupported feed extension %q", f.Path, ext)
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if ext == ".csv" {
		bars, err := ReadCSV(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		return &Document{Bars: bars}, nil
	}

	doc, err := ReadJSON(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return doc, nil
}

// Supported reports whether the path has a readable extension
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return true
	}
	return false
}

var _ core.Feeder = File{}
