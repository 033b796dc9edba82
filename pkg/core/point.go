package core

import (
	"encoding/json"
	"math"
)

// Absent returns the marker for an undefined indicator value
func Absent() float64 { return math.NaN() }

// Point is one indicator sample. A NaN value means the indicator is undefined
// at that time and must never be read as zero.
type Point struct {
	Time  int64
	Value float64
}

// IsAbsent reports whether the point carries no value
func (p Point) IsAbsent() bool { return math.IsNaN(p.Value) }

// MarshalJSON encodes absent points as whitespace points, {"time": t}
func (p Point) MarshalJSON() ([]byte, error) {
	if p.IsAbsent() {
		return json.Marshal(struct {
			Time int64 `json:"time"`
		}{p.Time})
	}
	return json.Marshal(struct {
		Time  int64   `json:"time"`
		Value float64 `json:"value"`
	}{p.Time, p.Value})
}

// Sign classifies a histogram bar for coloring
type Sign int8

const (
	SignNone Sign = iota
	SignUp
	SignDown
)

func (s Sign) String() string {
	switch s {
	case SignUp:
		return "up"
	case SignDown:
		return "down"
	default:
		return "none"
	}
}

// SignOf returns SignUp for values >= 0, SignDown for negatives and SignNone
// for absent values
func SignOf(v float64) Sign {
	switch {
	case math.IsNaN(v):
		return SignNone
	case v >= 0:
		return SignUp
	default:
		return SignDown
	}
}

// HistogramPoint is a Point with its direction
type HistogramPoint struct {
	Point
	Sign Sign
}

// NewHistogramPoint derives the sign from the value
func NewHistogramPoint(ts int64, value float64) HistogramPoint {
	return HistogramPoint{Point: Point{Time: ts, Value: value}, Sign: SignOf(value)}
}

// MarshalJSON adds the sign to the point encoding
func (h HistogramPoint) MarshalJSON() ([]byte, error) {
	if h.IsAbsent() {
		return h.Point.MarshalJSON()
	}
	return json.Marshal(struct {
		Time  int64   `json:"time"`
		Value float64 `json:"value"`
		Sign  string  `json:"sign"`
	}{h.Time, h.Value, h.Sign.String()})
}
