// Package chart orchestrates a chart build: normalize, compute, align,
// render each panel and compose the final image
package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/raykavin/chartshot/pkg/align"
	"github.com/raykavin/chartshot/pkg/compose"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/indicator"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/metric"
	"github.com/raykavin/chartshot/pkg/normalize"
	"github.com/raykavin/chartshot/pkg/render"
	"github.com/raykavin/chartshot/pkg/render/gochart"
	"golang.org/x/sync/errgroup"
)

// Meta describes the instrument a chart is drawn for
type Meta = core.Meta

// Result is a finished chart
type Result struct {
	Meta      Meta
	Image     []byte
	Last      core.Bar
	Bars      int
	Panels    int
	Renderer  string
	Durations map[core.Stage]time.Duration
	Elapsed   time.Duration
}

// Builder turns bars into chart images. It holds no per-build state and is
// safe for concurrent use.
type Builder struct {
	provider render.Provider
	composer *compose.Composer
	engine   *indicator.Engine
	config   layout.Config
	plan     *layout.Plan
	log      logger.Logger
	metrics  *metric.Metrics
	maxBars  int
}

// Option configures a Builder
type Option func(*Builder)

// WithProvider sets the panel renderer, go-chart by default
func WithProvider(provider render.Provider) Option {
	return func(b *Builder) {
		b.provider = provider
	}
}

// WithComposer sets the panel composer
func WithComposer(composer *compose.Composer) Option {
	return func(b *Builder) {
		b.composer = composer
	}
}

// WithEngine sets the indicator engine
func WithEngine(engine *indicator.Engine) Option {
	return func(b *Builder) {
		b.engine = engine
	}
}

// WithLayout sets the chart geometry and style
func WithLayout(config layout.Config) Option {
	return func(b *Builder) {
		b.config = config
	}
}

// WithLogger sets the builder logger
func WithLogger(log logger.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// WithMetrics records build metrics
func WithMetrics(metrics *metric.Metrics) Option {
	return func(b *Builder) {
		b.metrics = metrics
	}
}

// WithMaxBars draws only the most recent bars. Indicators are computed on
// the kept bars.
func WithMaxBars(n int) Option {
	return func(b *Builder) {
		b.maxBars = n
	}
}

// New creates a builder and plans its layout
func New(options ...Option) (*Builder, error) {
	builder := &Builder{
		config: layout.DefaultConfig(),
		log:    logger.Nop(),
	}

	for _, option := range options {
		option(builder)
	}

	if builder.provider == nil {
		builder.provider = gochart.New(gochart.WithLogger(builder.log))
	}
	if builder.composer == nil {
		builder.composer = compose.New(compose.WithLogger(builder.log))
	}
	if builder.engine == nil {
		builder.engine = indicator.NewEngine(indicator.WithLogger(builder.log))
	}

	if err := builder.engine.Validate(); err != nil {
		return nil, &core.StageError{Stage: core.StageIndicators, Err: err}
	}

	plan, err := layout.New(builder.config)
	if err != nil {
		return nil, &core.StageError{Stage: core.StageLayout, Err: err}
	}
	builder.plan = plan

	return builder, nil
}

// Plan returns the chart geometry
func (b *Builder) Plan() *layout.Plan {
	return b.plan
}

// build carries the state of one Build call
type build struct {
	*Builder
	log       logger.Logger
	durations map[core.Stage]time.Duration
}

func (b *build) stage(ctx context.Context, stage core.Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return b.fail(stage, err)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	b.durations[stage] = elapsed
	b.metrics.ObserveStage(stage, elapsed)

	if err != nil {
		return b.fail(stage, err)
	}

	b.log.WithFields(map[string]any{
		"stage":   stage,
		"elapsed": elapsed,
	}).Debug("stage done")
	return nil
}

func (b *build) fail(stage core.Stage, err error) error {
	b.metrics.Failed(stage)
	b.log.WithError(err).WithField("stage", stage).Error("chart build failed")
	return &core.StageError{Stage: stage, Err: err}
}

// Build renders the chart for the given bars. Every failure is a
// *core.StageError naming the step that failed; no partial image is returned.
func (b *Builder) Build(ctx context.Context, raw []core.RawBar, meta Meta) (*Result, error) {
	start := time.Now()
	run := &build{
		Builder:   b,
		durations: make(map[core.Stage]time.Duration, 6),
		log: b.log.WithFields(map[string]any{
			"symbol":    meta.Symbol,
			"timeframe": meta.Timeframe,
			"renderer":  b.provider.Name(),
		}),
	}

	var (
		df      *core.Dataframe
		result  *indicator.Result
		aligned *align.Aligned
		panels  []render.Panel
		overlay []layout.TextItem
		images  [][]byte
		image   []byte
	)

	err := run.stage(ctx, core.StageNormalize, func() (err error) {
		df, err = normalize.Normalize(raw)
		if err == nil && b.maxBars > 0 {
			df = df.Sample(b.maxBars)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	err = run.stage(ctx, core.StageIndicators, func() (err error) {
		result, err = b.engine.Compute(ctx, df)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = run.stage(ctx, core.StageAlign, func() (err error) {
		aligned, err = align.Panels(df, result)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = run.stage(ctx, core.StageLayout, func() (err error) {
		panels, err = b.panels(df, aligned, result, meta)
		if err != nil {
			return err
		}
		overlay, err = b.overlay(df, result, meta)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = run.stage(ctx, core.StageRender, func() (err error) {
		images, err = b.render(ctx, panels)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = run.stage(ctx, core.StageCompose, func() (err error) {
		image, err = b.composer.Compose(images, b.plan, overlay)
		return err
	})
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	b.metrics.ObserveBuild(elapsed, df.Len(), len(image))
	run.log.WithFields(map[string]any{
		"bars":    df.Len(),
		"bytes":   len(image),
		"elapsed": elapsed,
	}).Info("chart built")

	return &Result{
		Meta:      meta,
		Image:     image,
		Last:      df.Last(),
		Bars:      df.Len(),
		Panels:    len(panels),
		Renderer:  b.provider.Name(),
		Durations: run.durations,
		Elapsed:   elapsed,
	}, nil
}

// render captures every panel concurrently. The first failure cancels the others.
func (b *Builder) render(ctx context.Context, panels []render.Panel) ([][]byte, error) {
	images := make([][]byte, len(panels))

	group, ctx := errgroup.WithContext(ctx)
	for i, panel := range panels {
		group.Go(func() error {
			img, err := render.Render(ctx, b.provider, panel)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return images, nil
}

// overlay measures the titles with a face owned by this build
func (b *Builder) overlay(df *core.Dataframe, result *indicator.Result, meta Meta) ([]layout.TextItem, error) {
	measurer, err := layout.NewMeasurer(b.config.FontSize)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	defer measurer.Close()

	return b.plan.Overlay(measurer, layout.Titles{
		Price: meta.Title(),
		RSI:   result.RSIName,
		MACD:  result.MACDName,
	}, df.Last()), nil
}
