package metric

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveStage(core.StageRender, 20*time.Millisecond)
	m.ObserveBuild(50*time.Millisecond, 120, 40_000)
	m.Failed(core.StageNormalize)
	m.Failed(core.StageNormalize)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BuildsTotal.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("normalize")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chartshot_stage_duration_seconds_count{stage=\"render\"} 1")
	assert.Contains(t, string(body), "chartshot_build_duration_seconds_count 1")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage(core.StageAlign, time.Second)
		m.ObserveBuild(time.Second, 1, 1)
		m.Failed(core.StageCompose)
	})
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]time.Duration{3 * time.Second, time.Second, 2 * time.Second})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2*time.Second, s.Mean)
	assert.Equal(t, time.Second, s.Min)
	assert.Equal(t, 3*time.Second, s.Max)
	assert.Equal(t, time.Second, s.StdDev)

	single := Summarize([]time.Duration{time.Second})
	assert.Equal(t, time.Duration(0), single.StdDev)
	assert.Equal(t, time.Second, single.P50)
}
