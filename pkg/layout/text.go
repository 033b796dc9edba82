package layout

import (
	"strconv"

	"github.com/raykavin/chartshot/pkg/core"
)

// TextItem is a string drawn on the overlay with its baseline at Y
type TextItem struct {
	Text  string  `json:"text"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
}

// Measurer returns the advance width of a string in pixels
type Measurer interface {
	Measure(text string) int
}

// Titles are the headings of each panel
type Titles struct {
	Price string
	RSI   string
	MACD  string
}

// Overlay places the panel titles and, after the price title, the OHLC
// values of the last bar
func (p *Plan) Overlay(m Measurer, titles Titles, last core.Bar) []TextItem {
	cfg := p.Config
	items := make([]TextItem, 0, 11)

	text := map[PanelKind]string{
		PanelPrice: titles.Price,
		PanelRSI:   titles.RSI,
		PanelMACD:  titles.MACD,
	}

	for _, panel := range p.Panels {
		if text[panel.Kind] == "" {
			continue
		}
		items = append(items, TextItem{
			Text:  text[panel.Kind],
			X:     panel.Left + cfg.TitleInset.X,
			Y:     panel.Top + cfg.TitleInset.Y,
			Color: cfg.Palette.Title,
			Size:  cfg.FontSize,
		})
	}

	price, ok := p.Panel(PanelPrice)
	if !ok {
		return items
	}

	x := price.Left + cfg.TitleInset.X + m.Measure(titles.Price) + cfg.ValueGap
	y := price.Top + cfg.TitleInset.Y
	for _, pair := range ohlc(last, cfg.ValuePrecision) {
		items = append(items, TextItem{Text: pair[0], X: x, Y: y, Color: cfg.Palette.Title, Size: cfg.FontSize})
		x += m.Measure(pair[0])

		items = append(items, TextItem{Text: pair[1], X: x, Y: y, Color: cfg.Palette.Value, Size: cfg.FontSize})
		x += len(pair[1])*cfg.NumericAdvance + cfg.ValueGap
	}

	return items
}

func ohlc(bar core.Bar, precision int) [][2]string {
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	return [][2]string{
		{"O: ", format(bar.Open)},
		{"H: ", format(bar.High)},
		{"L: ", format(bar.Low)},
		{"C: ", format(bar.Close)},
	}
}
