package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointMarshal(t *testing.T) {
	data, err := json.Marshal([]Point{{Time: 60, Value: Absent()}, {Time: 120, Value: 1.5}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"time":60},{"time":120,"value":1.5}]`, string(data))

	data, err = json.Marshal([]HistogramPoint{NewHistogramPoint(60, Absent()), NewHistogramPoint(120, -2), NewHistogramPoint(180, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"time":60},{"time":120,"value":-2,"sign":"down"},{"time":180,"value":0,"sign":"up"}]`, string(data))
}

func TestSignOf(t *testing.T) {
	assert.Equal(t, SignNone, SignOf(math.NaN()))
	assert.Equal(t, SignUp, SignOf(0))
	assert.Equal(t, SignDown, SignOf(-0.01))
	assert.Equal(t, "none", SignNone.String())
}

func TestBarValidate(t *testing.T) {
	valid := Bar{Time: 60, Open: 10, High: 12, Low: 9, Close: 11, Volume: 100}

	tt := []struct {
		name  string
		bar   func(b Bar) Bar
		field string
	}{
		{"valid", func(b Bar) Bar { return b }, ""},
		{"flat", func(b Bar) Bar { b.Open, b.High, b.Low, b.Close = 5, 5, 5, 5; return b }, ""},
		{"nan open", func(b Bar) Bar { b.Open = math.NaN(); return b }, "open"},
		{"inf volume", func(b Bar) Bar { b.Volume = math.Inf(1); return b }, "volume"},
		{"negative volume", func(b Bar) Bar { b.Volume = -1; return b }, "volume"},
		{"low above high", func(b Bar) Bar { b.Low = 13; return b }, "low"},
		{"open outside range", func(b Bar) Bar { b.Open = 8; return b }, "open"},
		{"close outside range", func(b Bar) Bar { b.Close = 12.5; return b }, "close"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			field, ok := tc.bar(valid).Validate()
			assert.Equal(t, tc.field == "", ok)
			assert.Equal(t, tc.field, field)
		})
	}
}

func TestNewRawBar(t *testing.T) {
	raw := NewRawBar(60, 1.5, 2, 1, 1.25, 0)
	assert.Equal(t, json.Number("60"), raw.Time)
	assert.Equal(t, json.Number("1.5"), raw.Open)
	assert.Equal(t, json.Number("0"), raw.Volume)
}

func TestMetaTitle(t *testing.T) {
	assert.Equal(t, "HAT · 1m, coingecko", Meta{Symbol: "HAT", Timeframe: "1m", Source: "coingecko"}.Title())
	assert.Equal(t, "HAT · 1m", Meta{Symbol: "HAT", Timeframe: "1m"}.Title())
	assert.Equal(t, "HAT", Meta{Symbol: "HAT"}.Title())
}

func TestDataframe(t *testing.T) {
	bars := []Bar{
		{Time: 60, Open: 1, High: 2, Low: 1, Close: 2},
		{Time: 120, Open: 2, High: 3, Low: 2, Close: 3},
		{Time: 180, Open: 3, High: 4, Low: 2, Close: 2.5},
	}
	df := NewDataframe(bars)

	assert.Equal(t, 3, df.Len())
	assert.Equal(t, []int64{60, 120, 180}, df.Time)
	assert.Equal(t, 2.5, df.Close.Values()[2])
	assert.Equal(t, time.Unix(180, 0).UTC(), df.Last().GetTime())
	assert.Equal(t, bars[2], df.Last())
	assert.Equal(t, 2, df.Sample(2).Len())
	assert.Same(t, df, df.Sample(10))
}

func TestSeries(t *testing.T) {
	s := Series[float64]{1, math.NaN(), 3, math.Inf(-1), 5}
	assert.Len(t, s.From(3), 2)
	assert.Empty(t, s.From(7))
	assert.Equal(t, []float64{1, 3, 5}, Finite(s))
}

func TestStageErrorUnwrap(t *testing.T) {
	cause := &InvalidBarError{Index: 3, Field: "high", Value: "abc", Err: errors.New("not a number")}
	err := &StageError{Stage: StageNormalize, Err: cause}

	var target *InvalidBarError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 3, target.Index)
	assert.Equal(t, `normalize: invalid bar at index 3: field "high" (value "abc"): not a number`, err.Error())

	comp := &CompositionError{Panel: -1, Reason: "no panels"}
	assert.Equal(t, "composition failed: no panels", comp.Error())
}
