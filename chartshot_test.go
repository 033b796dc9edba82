package chartshot

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpillora/backoff"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/raykavin/chartshot/pkg/chart"
	"github.com/raykavin/chartshot/pkg/config"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/notification"
	"github.com/raykavin/chartshot/pkg/render"
	"github.com/raykavin/chartshot/pkg/render/gochart"
	"github.com/raykavin/chartshot/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() config.Settings {
	settings := config.Default()
	settings.Layout.Width = 240
	settings.Layout.PriceHeight = 120
	settings.Layout.RSIHeight = 40
	settings.Layout.MACDHeight = 40
	settings.Storage.Path = ""
	settings.Render.Source = "GMGN.AI"
	return settings
}

func bars(n int) []core.RawBar {
	raw := make([]core.RawBar, n)
	for i := range raw {
		price := 10 + float64(i%7) - float64(i%3)
		raw[i] = core.NewRawBar(int64(60*(i+1)), price, price+1, price-1, price+0.5, float64(i+1))
	}
	return raw
}

type recordingNotifier struct {
	mu       sync.Mutex
	captions []string
}

func (n *recordingNotifier) NotifyChart(_ context.Context, caption string, _ []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.captions = append(n.captions, caption)
	return nil
}

// flakyProvider fails the first acquisitions and then delegates
type flakyProvider struct {
	render.Provider
	failures atomic.Int32
}

func (p *flakyProvider) Acquire(ctx context.Context, geometry layout.PanelGeometry) (render.Surface, error) {
	if p.failures.Add(-1) >= 0 {
		return nil, errors.New("tab crashed")
	}
	return p.Provider.Acquire(ctx, geometry)
}

func newChartshot(t *testing.T, options ...Option) (*Chartshot, *storage.BuntStorage) {
	t.Helper()

	history, err := storage.FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	c, err := New(testSettings(), append([]Option{
		WithStorage(history),
		WithLogger(logger.Nop()),
		WithOutput(&bytes.Buffer{}),
	}, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	c.backoff = backoff.Backoff{Min: time.Millisecond, Max: time.Millisecond}
	return c, history
}

func TestRender(t *testing.T) {
	notifier := &recordingNotifier{}
	c, history := newChartshot(t, WithNotifier(notifier))

	output := filepath.Join(t.TempDir(), "hat.png")
	meta := chart.Meta{Symbol: "HAT", Timeframe: "1m"}

	result, err := c.Render(context.Background(), StaticFeed(bars(50)), meta, output)
	require.NoError(t, err)
	assert.Equal(t, chart.Meta{Symbol: "HAT", Timeframe: "1m", Source: "GMGN.AI"}, result.Meta)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, result.Image, content)

	img, err := png.Decode(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, c.Builder().Plan().Canvas, img.Bounds().Size())

	require.Len(t, notifier.captions, 1)
	assert.True(t, strings.HasPrefix(notifier.captions[0], "HAT · 1m, GMGN.AI\n"))

	records, err := history.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GMGN.AI", records[0].Source)
	assert.Equal(t, 50, records[0].Bars)
	assert.Equal(t, len(result.Image), records[0].Bytes)

	var summary bytes.Buffer
	PrintSummary(&summary, result.Meta, result)
	assert.Contains(t, summary.String(), "------ HAT · 1m, GMGN.AI ------")
	assert.Contains(t, summary.String(), "indicators")
	assert.Contains(t, summary.String(), "BARS:     50 (gochart renderer)")
}

func TestRenderKeepsCallerSource(t *testing.T) {
	notifier := &recordingNotifier{}
	c, _ := newChartshot(t, WithNotifier(notifier))

	meta := chart.Meta{Symbol: "HAT", Timeframe: "5m", Source: "coingecko"}
	result, err := c.Render(context.Background(), StaticFeed(bars(40)), meta, "")
	require.NoError(t, err)

	assert.Equal(t, meta, result.Meta)
	require.Len(t, notifier.captions, 1)
	assert.True(t, strings.HasPrefix(notifier.captions[0], "HAT · 5m, coingecko\n"))
}

func TestRenderMaxBarsFromSettings(t *testing.T) {
	settings := testSettings()
	settings.Render.MaxBars = 30

	c, err := New(settings, WithLogger(logger.Nop()), WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	result, err := c.Build(context.Background(), bars(50), chart.Meta{Symbol: "HAT"})
	require.NoError(t, err)
	assert.Equal(t, 30, result.Bars)
	assert.Equal(t, int64(60*50), result.Last.Time)
}

func TestMailNotifierFromSettings(t *testing.T) {
	settings := testSettings()
	settings.Mail = core.MailSettings{Enabled: true, Host: "smtp.example.com", Port: 587, From: "bot@example.com", To: "desk@example.com"}

	c, err := New(settings, WithLogger(logger.Nop()), WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.Len(t, c.notifiers, 1)
	assert.IsType(t, &notification.Mail{}, c.notifiers[0])
}

func TestBuildRetriesRendererFailures(t *testing.T) {
	provider := &flakyProvider{Provider: gochart.New()}
	provider.failures.Store(1)

	c, history := newChartshot(t, WithProvider(provider))

	_, err := c.Build(context.Background(), bars(5), chart.Meta{Symbol: "HAT"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics().BuildsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics().BuildsTotal.WithLabelValues("ok")))

	records, err := history.Records(core.WithFailed(false))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBuildDoesNotRetryInputErrors(t *testing.T) {
	c, history := newChartshot(t)

	_, err := c.Build(context.Background(), nil, chart.Meta{Symbol: "HAT"})
	assert.ErrorIs(t, err, core.ErrEmptySeries)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics().BuildsTotal.WithLabelValues("failed")))

	records, err := history.Records(core.WithFailed(true))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBuildGivesUpAfterRetries(t *testing.T) {
	provider := &flakyProvider{Provider: gochart.New()}
	provider.failures.Store(1000)

	c, _ := newChartshot(t, WithProvider(provider))

	_, err := c.Build(context.Background(), bars(5), chart.Meta{Symbol: "HAT"})

	var renderErr *core.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Metrics().BuildsTotal.WithLabelValues("failed")))
}

func TestBatch(t *testing.T) {
	c, _ := newChartshot(t)

	dir := t.TempDir()
	var csv strings.Builder
	csv.WriteString("time,open,high,low,close,volume\n")
	for i := 1; i <= 40; i++ {
		price := 10 + float64(i%5)
		csv.WriteString(strconv.Itoa(i*60) + "," +
			strconv.FormatFloat(price, 'f', -1, 64) + "," +
			strconv.FormatFloat(price+1, 'f', -1, 64) + "," +
			strconv.FormatFloat(price-1, 'f', -1, 64) + "," +
			strconv.FormatFloat(price+0.5, 'f', -1, 64) + ",1\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hat.csv"), []byte(csv.String()), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.json"), []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	outDir := filepath.Join(t.TempDir(), "charts")
	report, err := c.Batch(context.Background(), dir, outDir, "1m")
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(outDir, "hat.png")}, report.Rendered)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed, "empty.json")
	assert.Equal(t, 1, report.Summary.Count)
	assert.FileExists(t, filepath.Join(outDir, "hat.png"))

	var out bytes.Buffer
	PrintBatch(&out, report)
	assert.Contains(t, out.String(), "FAILED empty.json")

	out.Reset()
	require.NoError(t, c.PrintHistory(&out, 10))
	assert.Contains(t, out.String(), "HAT")
}

func TestParseCompression(t *testing.T) {
	for _, value := range []string{"", "default", "none", "speed", "best"} {
		_, err := parseCompression(value)
		assert.NoError(t, err, value)
	}
	_, err := parseCompression("max")
	assert.Error(t, err)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&core.StageError{Stage: core.StageRender, Err: errors.New("x")}))
	assert.True(t, retryable(&core.StageError{Stage: core.StageCompose, Err: errors.New("x")}))
	assert.False(t, retryable(&core.StageError{Stage: core.StageNormalize, Err: errors.New("x")}))
	assert.False(t, retryable(&core.StageError{Stage: core.StageRender, Err: context.Canceled}))
	assert.False(t, retryable(errors.New("x")))
}

func TestInitLogger(t *testing.T) {
	t.Setenv(envLogBackend, "logrus")
	log, err := initLogger()
	require.NoError(t, err)
	assert.NotNil(t, log)

	t.Setenv(envLogBackend, "zerolog")
	t.Setenv(envLogColor, "false")
	log, err = initLogger()
	require.NoError(t, err)
	assert.NotNil(t, log)

	t.Setenv(envLogBackend, "stdout")
	_, err = initLogger()
	assert.Error(t, err)

	t.Setenv(envLogBackend, "zerolog")
	t.Setenv(envLogJSON, "maybe")
	_, err = initLogger()
	assert.Error(t, err)
}
