// Package server exposes chart builds over HTTP
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raykavin/chartshot/pkg/chart"
	"github.com/raykavin/chartshot/pkg/config"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/feed"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/metric"
)

const defaultHistoryLimit = 20

// Builder renders charts
type Builder interface {
	Build(ctx context.Context, raw []core.RawBar, meta chart.Meta) (*chart.Result, error)
}

// History stores and lists builds
type History interface {
	core.HistoryStorage
	Last(limit int, filters ...core.RecordFilter) ([]*core.BuildRecord, error)
}

type server struct {
	builder  Builder
	history  History
	metrics  *metric.Metrics
	log      logger.Logger
	source   string
	maxBars  int
	maxBody  int64
	renderer string
}

// Option configures the server
type Option func(*server)

// WithHistory records every build and enables GET /v1/history
func WithHistory(history History) Option {
	return func(s *server) {
		s.history = history
	}
}

// WithMetrics enables GET /metrics
func WithMetrics(metrics *metric.Metrics) Option {
	return func(s *server) {
		s.metrics = metrics
	}
}

// WithLogger sets the request logger
func WithLogger(log logger.Logger) Option {
	return func(s *server) {
		s.log = log
	}
}

// WithLimits bounds the bars and body size of a chart request
func WithLimits(maxBars int, maxBody int64) Option {
	return func(s *server) {
		s.maxBars = maxBars
		s.maxBody = maxBody
	}
}

// WithSource sets the source label used when a request names none
func WithSource(source string) Option {
	return func(s *server) {
		s.source = source
	}
}

// WithRenderer names the renderer in the history records
func WithRenderer(name string) Option {
	return func(s *server) {
		s.renderer = name
	}
}

// NewServer returns the chartshot HTTP handler
func NewServer(builder Builder, options ...Option) http.Handler {
	s := &server{
		builder: builder,
		log:     logger.Nop(),
		maxBars: config.Default().Server.MaxBars,
		maxBody: config.Default().Server.MaxBodyBytes,
	}

	for _, option := range options {
		option(s)
	}

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", s.health)
	router.Post("/v1/chart", s.chart)

	if s.history != nil {
		router.Get("/v1/history", s.listHistory)
	}

	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return router
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      r.RemoteAddr,
			"request_id":  middleware.GetReqID(r.Context()),
		}).Info("http request")
	})
}

// ChartRequest is the body of POST /v1/chart. Bars accepts any document
// the JSON feed reads.
type ChartRequest struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Source    string          `json:"source"`
	Bars      json.RawMessage `json:"bars"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) chart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var request ChartRequest
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if request.Timeframe != "" {
		if _, err := config.ParseTimeframe(request.Timeframe); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	doc, err := feed.ReadJSON(bytes.NewReader(request.Bars))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(doc.Bars) > s.maxBars {
		s.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%d bars exceed the limit of %d", len(doc.Bars), s.maxBars))
		return
	}

	meta := chart.Meta{
		Symbol:    request.Symbol,
		Timeframe: request.Timeframe,
		Source:    request.Source,
	}
	if meta.Symbol == "" {
		meta.Symbol = doc.Symbol
	}
	if meta.Source == "" {
		meta.Source = s.source
	}

	start := time.Now()
	result, err := s.builder.Build(r.Context(), doc.Bars, meta)
	s.record(meta, len(doc.Bars), result, err, time.Since(start))
	if err != nil {
		s.writeBuildError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Image)))
	w.Header().Set("X-Chart-Bars", strconv.Itoa(result.Bars))
	w.Header().Set("X-Chart-Elapsed", result.Elapsed.String())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Image); err != nil {
		s.log.WithError(err).Debug("chart response write failed")
	}
}

func (s *server) record(meta chart.Meta, bars int, result *chart.Result, buildErr error, elapsed time.Duration) {
	if s.history == nil {
		return
	}

	record := &core.BuildRecord{
		Symbol:    meta.Symbol,
		Timeframe: meta.Timeframe,
		Source:    meta.Source,
		Renderer:  s.renderer,
		Bars:      bars,
		Duration:  elapsed,
		Output:    "http",
	}
	if result != nil {
		record.Bytes = len(result.Image)
		record.Renderer = result.Renderer
	}
	if buildErr != nil {
		record.Error = buildErr.Error()
	}

	if err := s.history.CreateRecord(record); err != nil {
		s.log.WithError(err).Warn("failed to record build")
	}
}

func (s *server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", value))
			return
		}
		limit = parsed
	}

	var filters []core.RecordFilter
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		filters = append(filters, core.WithSymbol(symbol))
	}

	records, err := s.history.Last(limit, filters...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, records)
}

// statusOf maps a build failure to an HTTP status
func statusOf(err error) int {
	var stageErr *core.StageError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &stageErr) && stageErr.Stage == core.StageNormalize:
		return http.StatusUnprocessableEntity
	case errors.As(err, &stageErr) && stageErr.Stage == core.StageRender:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeBuildError(w http.ResponseWriter, err error) {
	response := errorResponse{Error: err.Error()}

	var stageErr *core.StageError
	if errors.As(err, &stageErr) {
		response.Stage = string(stageErr.Stage)
	}

	s.writeJSON(w, statusOf(err), response)
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Debug("json response write failed")
	}
}
