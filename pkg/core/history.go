package core

import (
	"slices"
	"time"
)

// BuildRecord describes one finished chart build
type BuildRecord struct {
	ID        int64         `json:"id"`
	Symbol    string        `json:"symbol"`
	Timeframe string        `json:"timeframe"`
	Source    string        `json:"source"`
	Renderer  string        `json:"renderer"`
	Bars      int           `json:"bars"`
	Bytes     int           `json:"bytes"`
	Duration  time.Duration `json:"duration"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Failed reports whether the build ended with an error
func (r BuildRecord) Failed() bool {
	return r.Error != ""
}

type RecordFilter func(record BuildRecord) bool

// HistoryStorage persists build records
type HistoryStorage interface {
	// CreateRecord stores a new record and assigns its ID
	CreateRecord(record *BuildRecord) error

	// Records retrieves records ordered by creation time
	Records(filters ...RecordFilter) ([]*BuildRecord, error)
}

func WithSymbol(symbol string) RecordFilter {
	return func(record BuildRecord) bool {
		return record.Symbol == symbol
	}
}

func WithTimeframeIn(timeframes ...string) RecordFilter {
	return func(record BuildRecord) bool {
		return slices.Contains(timeframes, record.Timeframe)
	}
}

func WithFailed(failed bool) RecordFilter {
	return func(record BuildRecord) bool {
		return record.Failed() == failed
	}
}

func WithCreatedAfter(t time.Time) RecordFilter {
	return func(record BuildRecord) bool {
		return record.CreatedAt.After(t)
	}
}
