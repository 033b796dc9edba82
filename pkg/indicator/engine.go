// Package indicator computes the oscillators drawn below the price panel
package indicator

import (
	"context"
	"fmt"
	"time"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Result holds the raw, unaligned indicator outputs
type Result struct {
	RSIName  string
	MACDName string

	RSI       []core.Point
	MACD      []core.Point
	Signal    []core.Point
	Histogram []core.HistogramPoint
}

// Engine computes RSI and MACD over a dataframe
type Engine struct {
	rsiPeriod  int
	macdFast   int
	macdSlow   int
	macdSignal int
	mode       Mode
	log        logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithRSIPeriod sets the RSI look-back window
func WithRSIPeriod(period int) Option {
	return func(e *Engine) {
		e.rsiPeriod = period
	}
}

// WithMACD sets the MACD periods
func WithMACD(fast, slow, signal int) Option {
	return func(e *Engine) {
		e.macdFast = fast
		e.macdSlow = slow
		e.macdSignal = signal
	}
}

// WithMode selects compatible or textbook arithmetic
func WithMode(mode Mode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithLogger sets the engine logger
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates an engine with RSI(14) and MACD(12, 26, 9) by default
func NewEngine(options ...Option) *Engine {
	engine := &Engine{
		rsiPeriod:  DefaultRSIPeriod,
		macdFast:   DefaultMACDFast,
		macdSlow:   DefaultMACDSlow,
		macdSignal: DefaultMACDSignal,
		mode:       ModeCompatible,
		log:        logger.Nop(),
	}

	for _, option := range options {
		option(engine)
	}

	return engine
}

// Validate checks the configured periods
func (e *Engine) Validate() error {
	if e.rsiPeriod < 1 {
		return fmt.Errorf("rsi period must be positive, got %d", e.rsiPeriod)
	}
	return MACD(e.macdFast, e.macdSlow, e.macdSignal, e.mode).Validate()
}

// RSIName returns the RSI panel title
func (e *Engine) RSIName() string {
	return RSI(e.rsiPeriod, e.mode).Name()
}

// MACDName returns the MACD panel title
func (e *Engine) MACDName() string {
	return MACD(e.macdFast, e.macdSlow, e.macdSignal, e.mode).Name()
}

// Compute runs RSI and MACD concurrently. Series shorter than an indicator's
// warmup produce empty outputs, never an error.
func (e *Engine) Compute(ctx context.Context, df *core.Dataframe) (*Result, error) {
	if df == nil || df.Len() == 0 {
		return nil, core.ErrEmptySeries
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	rsiIndicator := RSI(e.rsiPeriod, e.mode)
	macdIndicator := MACD(e.macdFast, e.macdSlow, e.macdSignal, e.mode)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		rsiIndicator.Load(df)
		e.log.WithFields(map[string]any{
			"indicator": rsiIndicator.Name(),
			"values":    len(rsiIndicator.Values),
			"elapsed":   time.Since(start),
		}).Debug("indicator computed")
		return nil
	})

	group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		macdIndicator.Load(df)
		e.log.WithFields(map[string]any{
			"indicator": macdIndicator.Name(),
			"values":    len(macdIndicator.ValuesMACD),
			"elapsed":   time.Since(start),
		}).Debug("indicator computed")
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	if df.Len() < rsiIndicator.Warmup() || df.Len() < macdIndicator.Warmup() {
		e.log.WithField("bars", df.Len()).Debugf("%v, some panels stay empty", core.ErrInsufficientData)
	}

	return &Result{
		RSIName:   rsiIndicator.Name(),
		MACDName:  macdIndicator.Name(),
		RSI:       rsiIndicator.Values,
		MACD:      macdIndicator.ValuesMACD,
		Signal:    macdIndicator.ValuesSignal,
		Histogram: macdIndicator.ValuesHist,
	}, nil
}
