package core

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// RawBar is a bar as received from a caller. Numeric fields accept both JSON
// numbers and numeric strings, coercion happens during normalization.
type RawBar struct {
	Time   json.Number `json:"time"`
	Open   json.Number `json:"open"`
	High   json.Number `json:"high"`
	Low    json.Number `json:"low"`
	Close  json.Number `json:"close"`
	Volume json.Number `json:"volume"`
}

// NewRawBar builds a RawBar from already typed values
func NewRawBar(ts int64, open, high, low, close, volume float64) RawBar {
	return RawBar{
		Time:   json.Number(strconv.FormatInt(ts, 10)),
		Open:   formatNumber(open),
		High:   formatNumber(high),
		Low:    formatNumber(low),
		Close:  formatNumber(close),
		Volume: formatNumber(volume),
	}
}

func formatNumber(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}

// Bar is one OHLCV period with its opening time in unix seconds
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// GetTime returns the bar opening time in UTC
func (b Bar) GetTime() time.Time { return time.Unix(b.Time, 0).UTC() }

// IsUp reports whether the bar closed at or above its open
func (b Bar) IsUp() bool { return b.Close >= b.Open }

// Validate checks the OHLCV invariants and returns the offending field name
func (b Bar) Validate() (field string, ok bool) {
	values := []struct {
		name  string
		value float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume},
	}

	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return v.name, false
		}
	}

	switch {
	case b.Volume < 0:
		return "volume", false
	case b.Low > b.High:
		return "low", false
	case b.Open < b.Low || b.Open > b.High:
		return "open", false
	case b.Close < b.Low || b.Close > b.High:
		return "close", false
	}

	return "", true
}
