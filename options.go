package chartshot

import (
	"io"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/metric"
	"github.com/raykavin/chartshot/pkg/render"
)

// Option is a functional option for configuring a Chartshot instance
type Option func(*Chartshot)

// WithStorage sets the build history, by default a local file called chartshot.db
func WithStorage(history History) Option {
	return func(c *Chartshot) {
		c.history = history
	}
}

// WithNotifier registers a notifier receiving every rendered chart
func WithNotifier(notifier core.Notifier) Option {
	return func(c *Chartshot) {
		c.notifiers = append(c.notifiers, notifier)
	}
}

// WithProvider overrides the renderer selected by the settings
func WithProvider(provider render.Provider) Option {
	return func(c *Chartshot) {
		c.provider = provider
	}
}

// WithMetrics sets the metrics registry
func WithMetrics(metrics *metric.Metrics) Option {
	return func(c *Chartshot) {
		c.metrics = metrics
	}
}

// WithLogger sets the logger, DefaultLog otherwise
func WithLogger(log logger.Logger) Option {
	return func(c *Chartshot) {
		c.log = log
	}
}

// WithOutput sets where progress bars and reports are written
func WithOutput(out io.Writer) Option {
	return func(c *Chartshot) {
		c.out = out
	}
}
