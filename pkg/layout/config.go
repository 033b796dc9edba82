package layout

import (
	"errors"
	"fmt"
)

// Palette holds every color of the chart as #rrggbb or #rrggbbaa strings
type Palette struct {
	Background string `mapstructure:"background" json:"background"`
	Text       string `mapstructure:"text" json:"text"`
	Title      string `mapstructure:"title" json:"title"`
	Value      string `mapstructure:"value" json:"value"`
	Up         string `mapstructure:"up" json:"up"`
	Down       string `mapstructure:"down" json:"down"`
	RSILine    string `mapstructure:"rsi_line" json:"rsiLine"`
	MACDLine   string `mapstructure:"macd_line" json:"macdLine"`
	SignalLine string `mapstructure:"signal_line" json:"signalLine"`
	Grid       string `mapstructure:"grid" json:"grid"`
	Border     string `mapstructure:"border" json:"border"`
}

// Watermark is drawn centered on the price panel
type Watermark struct {
	Text     string  `mapstructure:"text" json:"text"`
	FontSize float64 `mapstructure:"font_size" json:"fontSize"`
	Color    string  `mapstructure:"color" json:"color"`
}

// Inset is an offset from a panel's top-left corner
type Inset struct {
	X int `mapstructure:"x"`
	Y int `mapstructure:"y"`
}

// Config holds the static geometry and style of a chart
type Config struct {
	Width         int `mapstructure:"width"`
	PriceHeight   int `mapstructure:"price_height"`
	RSIHeight     int `mapstructure:"rsi_height"`
	MACDHeight    int `mapstructure:"macd_height"`
	PaddingHeight int `mapstructure:"padding_height"`
	PaddingLeft   int `mapstructure:"padding_left"`
	PaddingRight  int `mapstructure:"padding_right"`
	Gap           int `mapstructure:"gap"`

	TitleInset     Inset   `mapstructure:"title_inset"`
	ValueGap       int     `mapstructure:"value_gap"`
	FontSize       float64 `mapstructure:"font_size"`
	NumericAdvance int     `mapstructure:"numeric_advance"`
	ValuePrecision int     `mapstructure:"value_precision"`
	PricePrecision int     `mapstructure:"price_precision"`

	Palette   Palette   `mapstructure:"palette"`
	Watermark Watermark `mapstructure:"watermark"`
}

// DefaultConfig returns the geometry and colors of the reference charts
func DefaultConfig() Config {
	return Config{
		Width:          1200,
		PriceHeight:    600,
		RSIHeight:      100,
		MACDHeight:     100,
		PaddingHeight:  12,
		PaddingLeft:    20,
		PaddingRight:   4,
		Gap:            4,
		TitleInset:     Inset{X: 12, Y: 12},
		ValueGap:       12,
		FontSize:       12,
		NumericAdvance: 7,
		ValuePrecision: 8,
		PricePrecision: 6,
		Palette: Palette{
			Background: "#131722",
			Text:       "#d1d4dc",
			Title:      "#787B86",
			Value:      "#ef5350",
			Up:         "#26a69a",
			Down:       "#ef5350",
			RSILine:    "#2962FF",
			MACDLine:   "#2962FF",
			SignalLine: "#FF6B6B",
			Grid:       "#2a2e3980",
			Border:     "#c5cbcecc",
		},
		Watermark: Watermark{
			Text:     "@CHAT_AS_PNG",
			FontSize: 48,
			Color:    "#ffffff1a",
		},
	}
}

// Validate checks that the geometry can be planned
func (c Config) Validate() error {
	var errs []error
	positive := map[string]int{
		"width":        c.Width,
		"price_height": c.PriceHeight,
		"rsi_height":   c.RSIHeight,
		"macd_height":  c.MACDHeight,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	if c.Gap < 0 || c.PaddingHeight < c.Gap || c.PaddingLeft < c.Gap {
		errs = append(errs, fmt.Errorf("paddings (%d, %d) must be at least the gap %d",
			c.PaddingHeight, c.PaddingLeft, c.Gap))
	}

	if c.PaddingRight < 0 {
		errs = append(errs, fmt.Errorf("padding_right must not be negative, got %d", c.PaddingRight))
	}

	if c.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("font_size must be positive, got %v", c.FontSize))
	}

	if c.ValuePrecision < 0 || c.PricePrecision < 0 {
		errs = append(errs, errors.New("precisions must not be negative"))
	}

	for name, value := range map[string]string{
		"background": c.Palette.Background,
		"title":      c.Palette.Title,
		"value":      c.Palette.Value,
	} {
		if _, err := ParseColor(value); err != nil {
			errs = append(errs, fmt.Errorf("palette %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
