// Package chartshot wires the chart pipeline to its renderers, history,
// notifiers and metrics
package chartshot

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jpillora/backoff"
	"github.com/raykavin/chartshot/pkg/chart"
	"github.com/raykavin/chartshot/pkg/compose"
	"github.com/raykavin/chartshot/pkg/config"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/indicator"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/metric"
	"github.com/raykavin/chartshot/pkg/render"
	"github.com/raykavin/chartshot/pkg/render/browser"
	"github.com/raykavin/chartshot/pkg/render/gochart"
	"github.com/raykavin/chartshot/pkg/server"
	"github.com/raykavin/chartshot/pkg/storage"
)

// DefaultLog is the default logger instance
var DefaultLog logger.Logger

// History stores and lists builds
type History = server.History

// Chartshot builds charts from settings and delivers them
type Chartshot struct {
	settings  config.Settings
	builder   *chart.Builder
	provider  render.Provider
	history   History
	notifiers []core.Notifier
	telegram  core.NotifierWithStart
	metrics   *metric.Metrics
	log       logger.Logger
	out       io.Writer
	backoff   backoff.Backoff
	closers   []io.Closer
}

// New creates a Chartshot instance from the settings
func New(settings config.Settings, options ...Option) (*Chartshot, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	c := &Chartshot{
		settings: settings,
		log:      DefaultLog,
		out:      os.Stdout,
		backoff: backoff.Backoff{
			Min:    200 * time.Millisecond,
			Max:    5 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}

	for _, option := range options {
		option(c)
	}

	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.metrics == nil {
		c.metrics = metric.New()
	}

	if err := c.initialize(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Chartshot) initialize() error {
	if c.provider == nil {
		provider, err := newProvider(c.settings.Render, c.log)
		if err != nil {
			return err
		}
		c.provider = provider
		if closer, ok := provider.(io.Closer); ok {
			c.closers = append(c.closers, closer)
		}
	}

	if c.history == nil && c.settings.Storage.Path != "" {
		history, err := storage.FromFile(c.settings.Storage.Path)
		if err != nil {
			return err
		}
		c.history = history.WithLogger(c.log)
		c.closers = append(c.closers, history)
	}

	compression, err := parseCompression(c.settings.Render.Compression)
	if err != nil {
		return err
	}

	c.builder, err = chart.New(
		chart.WithProvider(c.provider),
		chart.WithComposer(compose.New(compose.WithLogger(c.log), compose.WithCompression(compression))),
		chart.WithEngine(c.settings.Engine(indicator.WithLogger(c.log))),
		chart.WithLayout(c.settings.Layout),
		chart.WithMaxBars(c.settings.Render.MaxBars),
		chart.WithLogger(c.log),
		chart.WithMetrics(c.metrics),
	)
	if err != nil {
		return err
	}

	return initializeNotifications(c)
}

func newProvider(settings config.RenderSettings, log logger.Logger) (render.Provider, error) {
	switch settings.Renderer {
	case config.RendererBrowser:
		options := []browser.Option{
			browser.WithLogger(log),
			browser.WithSettle(settings.Settle),
			browser.WithTimeout(settings.Timeout),
			browser.WithDebug(settings.Debug),
		}
		if settings.BrowserURL != "" {
			options = append(options, browser.WithRemoteURL(settings.BrowserURL))
		}
		if settings.ExecPath != "" {
			options = append(options, browser.WithExecPath(settings.ExecPath))
		}
		if settings.LibraryURL != "" {
			options = append(options, browser.WithLibraryURL(settings.LibraryURL))
		}
		return browser.New(options...)
	default:
		return gochart.New(
			gochart.WithLogger(log),
			gochart.WithAxisFontSize(settings.AxisFontSize),
			gochart.WithTitlePadding(settings.TitlePadding),
		), nil
	}
}

func parseCompression(value string) (png.CompressionLevel, error) {
	switch value {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	}
	return 0, fmt.Errorf("unknown png compression %q", value)
}

// Builder returns the chart builder
func (c *Chartshot) Builder() *chart.Builder {
	return c.builder
}

// Metrics returns the metrics registry
func (c *Chartshot) Metrics() *metric.Metrics {
	return c.metrics
}

// Start begins polling the Telegram bot when enabled
func (c *Chartshot) Start() {
	if c.telegram != nil {
		c.telegram.Start()
	}
}

// retryable reports whether a failed build may succeed when repeated.
// Input errors never do.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var stageErr *core.StageError
	if !errors.As(err, &stageErr) {
		return false
	}
	return stageErr.Stage == core.StageRender || stageErr.Stage == core.StageCompose
}

// Build renders a chart, retrying renderer failures with exponential backoff,
// and records the outcome in the history
func (c *Chartshot) Build(ctx context.Context, raw []core.RawBar, meta chart.Meta) (*chart.Result, error) {
	meta = c.resolve(meta)

	retry := c.backoff
	start := time.Now()

	var (
		result *chart.Result
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = c.builder.Build(ctx, raw, meta)
		if err == nil || attempt >= c.settings.Render.Retries || !retryable(err) {
			break
		}

		wait := retry.Duration()
		c.log.WithError(err).WithFields(map[string]any{
			"attempt": attempt,
			"wait":    wait,
		}).Warn("chart build failed, retrying")

		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			err = &core.StageError{Stage: core.StageRender, Err: sleepErr}
			break
		}
	}

	c.record(meta, len(raw), result, err, time.Since(start))
	return result, err
}

// resolve fills the fields left empty by the caller from the settings
func (c *Chartshot) resolve(meta chart.Meta) chart.Meta {
	if meta.Source == "" {
		meta.Source = c.settings.Render.Source
	}
	return meta
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Handler returns the HTTP surface sharing this instance's builder, history
// and metrics
func (c *Chartshot) Handler() http.Handler {
	options := []server.Option{
		server.WithMetrics(c.metrics),
		server.WithLogger(c.log),
		server.WithLimits(c.settings.Server.MaxBars, c.settings.Server.MaxBodyBytes),
		server.WithSource(c.settings.Render.Source),
		server.WithRenderer(c.provider.Name()),
	}
	if c.history != nil {
		options = append(options, server.WithHistory(c.history))
	}
	return server.NewServer(c.builder, options...)
}

// Render builds the chart of a feed, writes it to output when set and
// notifies every notifier
func (c *Chartshot) Render(ctx context.Context, feeder core.Feeder, meta chart.Meta, output string) (*chart.Result, error) {
	raw, err := feeder.Bars(ctx)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}

	result, err := c.Build(ctx, raw, meta)
	if err != nil {
		return nil, err
	}

	if output != "" {
		if err := os.WriteFile(output, result.Image, 0o644); err != nil {
			return nil, fmt.Errorf("write chart: %w", err)
		}
		c.log.WithField("output", output).Info("chart written")
	}

	c.notify(ctx, result.Meta, result)
	return result, nil
}

func (c *Chartshot) record(meta chart.Meta, bars int, result *chart.Result, buildErr error, elapsed time.Duration) {
	if c.history == nil {
		return
	}

	record := &core.BuildRecord{
		Symbol:    meta.Symbol,
		Timeframe: meta.Timeframe,
		Source:    meta.Source,
		Renderer:  c.provider.Name(),
		Bars:      bars,
		Duration:  elapsed,
		Output:    "cli",
	}
	if result != nil {
		record.Bytes = len(result.Image)
	}
	if buildErr != nil {
		record.Error = buildErr.Error()
	}

	if err := c.history.CreateRecord(record); err != nil {
		c.log.WithError(err).Warn("failed to record build")
	}
}

// Close releases the renderer and the history
func (c *Chartshot) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
