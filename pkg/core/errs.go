package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySeries = errors.New("empty bar series")
	// ErrInsufficientData marks a series too short for an indicator. Indicators
	// never return it, they yield empty output instead.
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownTimestamp = errors.New("timestamp not on the canonical axis")
)

// Stage names a step of the chart build pipeline
type Stage string

const (
	StageNormalize  Stage = "normalize"
	StageIndicators Stage = "indicators"
	StageAlign      Stage = "align"
	StageLayout     Stage = "layout"
	StageRender     Stage = "render"
	StageCompose    Stage = "compose"
)

// StageError wraps a failure with the pipeline stage it came from
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// InvalidBarError reports a bar that could not be coerced or violates the
// OHLCV invariants
type InvalidBarError struct {
	Index int
	Field string
	Value string
	Err   error
}

func (e *InvalidBarError) Error() string {
	msg := fmt.Sprintf("invalid bar at index %d: field %q", e.Index, e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidBarError) Unwrap() error {
	return e.Err
}

// CompositionError reports panel images that do not match the layout
type CompositionError struct {
	Panel  int
	Reason string
	Err    error
}

func (e *CompositionError) Error() string {
	if e.Panel < 0 {
		return "composition failed: " + e.Reason
	}
	return fmt.Sprintf("composition failed at panel %d: %s", e.Panel, e.Reason)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// RenderError is a renderer failure passed through with the panel that failed
type RenderError struct {
	Panel string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s panel: %v", e.Panel, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
