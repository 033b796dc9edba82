package browser

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/raykavin/chartshot/pkg/render"
)

//go:embed assets
var assets embed.FS

// DefaultLibraryURL is the lightweight-charts build loaded by the panel page
const DefaultLibraryURL = "https://unpkg.com/lightweight-charts@4.1.3/dist/lightweight-charts.standalone.production.js"

type panelPage struct {
	html   *template.Template
	script template.JS
}

// newPanelPage parses the panel template and transpiles its script. Minification
// is skipped in debug mode.
func newPanelPage(debug bool) (*panelPage, error) {
	html, err := template.ParseFS(assets, "assets/panel.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse panel template: %w", err)
	}

	source, err := assets.ReadFile("assets/panel.js")
	if err != nil {
		return nil, fmt.Errorf("failed to read panel.js: %w", err)
	}

	result := api.Transform(string(source), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !debug,
		MinifyIdentifiers: !debug,
		MinifyWhitespace:  !debug,
	})

	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("panel script failed with: %v", result.Errors)
	}

	return &panelPage{html: html, script: template.JS(result.Code)}, nil
}

// build renders the standalone document for one panel
func (p *panelPage) build(panel render.Panel, libraryURL string) (string, error) {
	data, err := json.Marshal(panel)
	if err != nil {
		return "", fmt.Errorf("encode panel: %w", err)
	}

	var buf bytes.Buffer
	err = p.html.Execute(&buf, map[string]any{
		"LibraryURL": libraryURL,
		"Background": template.CSS(panel.Palette.Background),
		"Width":      panel.Geometry.Width,
		"Height":     panel.Geometry.Height,
		"Data":       template.JS(data),
		"Script":     p.script,
	})
	if err != nil {
		return "", fmt.Errorf("execute panel template: %w", err)
	}

	return buf.String(), nil
}
