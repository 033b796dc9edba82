// Package config handles chartshot configuration using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/indicator"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// EnvPrefix prefixes every environment override, CHARTSHOT_LAYOUT_WIDTH for layout.width
const EnvPrefix = "CHARTSHOT"

const (
	RendererGoChart = "gochart"
	RendererBrowser = "browser"
)

// Settings is the whole chartshot configuration
type Settings struct {
	Layout    layout.Config         `mapstructure:"layout"`
	Render    RenderSettings        `mapstructure:"render"`
	Indicator IndicatorSettings     `mapstructure:"indicator"`
	Storage   StorageSettings       `mapstructure:"storage"`
	Telegram  core.TelegramSettings `mapstructure:"telegram"`
	Mail      core.MailSettings     `mapstructure:"mail"`
	Server    ServerSettings        `mapstructure:"server"`
}

// RenderSettings selects and tunes the panel renderer
type RenderSettings struct {
	Renderer    string        `mapstructure:"renderer"`
	Source      string        `mapstructure:"source"`
	Retries     int           `mapstructure:"retries"`
	BrowserURL  string        `mapstructure:"browser_url"`
	ExecPath    string        `mapstructure:"exec_path"`
	LibraryURL  string        `mapstructure:"library_url"`
	Settle      time.Duration `mapstructure:"settle"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Debug       bool          `mapstructure:"debug"`
	Compression string        `mapstructure:"compression"`

	// MaxBars keeps only the most recent bars, 0 draws them all
	MaxBars      int     `mapstructure:"max_bars"`
	AxisFontSize float64 `mapstructure:"axis_font_size"`
	TitlePadding int     `mapstructure:"title_padding"`
}

// IndicatorSettings holds the study periods
type IndicatorSettings struct {
	Mode       string `mapstructure:"mode"`
	RSIPeriod  int    `mapstructure:"rsi_period"`
	MACDFast   int    `mapstructure:"macd_fast"`
	MACDSlow   int    `mapstructure:"macd_slow"`
	MACDSignal int    `mapstructure:"macd_signal"`
}

// StorageSettings locates the build history, an empty path disables it
type StorageSettings struct {
	Path string `mapstructure:"path"`
}

// ServerSettings configures the HTTP surface
type ServerSettings struct {
	Addr         string        `mapstructure:"addr"`
	MaxBars      int           `mapstructure:"max_bars"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Default returns the settings used when nothing is configured
func Default() Settings {
	return Settings{
		Layout: layout.DefaultConfig(),
		Render: RenderSettings{
			Renderer:    RendererGoChart,
			Retries:     3,
			Settle:      250 * time.Millisecond,
			Timeout:     30 * time.Second,
			Compression:  "default",
			AxisFontSize: 8,
			TitlePadding: 24,
		},
		Indicator: IndicatorSettings{
			Mode:       string(indicator.ModeCompatible),
			RSIPeriod:  indicator.DefaultRSIPeriod,
			MACDFast:   indicator.DefaultMACDFast,
			MACDSlow:   indicator.DefaultMACDSlow,
			MACDSignal: indicator.DefaultMACDSignal,
		},
		Storage: StorageSettings{
			Path: "chartshot.db",
		},
		Mail: core.MailSettings{
			Port: 587,
		},
		Server: ServerSettings{
			Addr:         ":8080",
			MaxBars:      5000,
			MaxBodyBytes: 8 << 20,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

// Load reads .env, the optional configuration file and CHARTSHOT_*
// environment overrides, in increasing precedence
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, "", reflect.ValueOf(Default()))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// setDefaults registers every leaf of the defaults so that environment
// overrides apply to keys missing from the file
func setDefaults(v *viper.Viper, prefix string, value reflect.Value) {
	for i := 0; i < value.NumField(); i++ {
		field := value.Type().Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		child := value.Field(i)
		if child.Kind() == reflect.Struct && child.Type() != reflect.TypeOf(time.Duration(0)) {
			setDefaults(v, key, child)
			continue
		}

		v.SetDefault(key, child.Interface())
	}
}

// Validate checks every section
func (s Settings) Validate() error {
	var errs []error

	if err := s.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch s.Render.Renderer {
	case RendererGoChart, RendererBrowser:
	default:
		errs = append(errs, fmt.Errorf("unknown renderer %q", s.Render.Renderer))
	}

	if s.Render.Retries < 1 {
		errs = append(errs, errors.New("render retries must be at least 1"))
	}

	switch indicator.Mode(s.Indicator.Mode) {
	case indicator.ModeCompatible, indicator.ModeTextbook:
	default:
		errs = append(errs, fmt.Errorf("unknown indicator mode %q", s.Indicator.Mode))
	}

	if err := s.Engine().Validate(); err != nil {
		errs = append(errs, err)
	}

	if s.Telegram.Enabled && (s.Telegram.Token == "" || len(s.Telegram.Users) == 0) {
		errs = append(errs, errors.New("telegram requires a token and at least one user"))
	}

	if s.Mail.Enabled && (s.Mail.Host == "" || s.Mail.Port < 1 || s.Mail.From == "" || s.Mail.To == "") {
		errs = append(errs, errors.New("mail requires a host, a port, a sender and a recipient"))
	}

	if s.Render.MaxBars < 0 || s.Render.TitlePadding < 0 || s.Render.AxisFontSize <= 0 {
		errs = append(errs, errors.New("render max bars and title padding must not be negative, axis font size must be positive"))
	}

	if s.Server.MaxBars < 1 {
		errs = append(errs, errors.New("server max bars must be positive"))
	}

	return errors.Join(errs...)
}

// Engine builds the indicator engine described by the settings
func (s Settings) Engine(options ...indicator.Option) *indicator.Engine {
	mode := indicator.ParseMode(s.Indicator.Mode)
	return indicator.NewEngine(append([]indicator.Option{
		indicator.WithRSIPeriod(s.Indicator.RSIPeriod),
		indicator.WithMACD(s.Indicator.MACDFast, s.Indicator.MACDSlow, s.Indicator.MACDSignal),
		indicator.WithMode(mode),
	}, options...)...)
}

// ParseTimeframe validates a timeframe label such as 1m, 4h or 1d
func ParseTimeframe(label string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(label)
	if err != nil {
		return 0, fmt.Errorf("invalid timeframe %q: %w", label, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q: must be positive", label)
	}
	return d, nil
}
