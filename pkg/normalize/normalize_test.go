package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(times ...int64) []core.RawBar {
	raw := make([]core.RawBar, 0, len(times))
	for _, ts := range times {
		price := float64(ts)
		raw = append(raw, core.NewRawBar(ts, price, price+1, price-1, price+0.5, 10))
	}
	return raw
}

func TestNormalize(t *testing.T) {
	t.Run("sorts ascending", func(t *testing.T) {
		df, err := Normalize(bars(30, 10, 20))
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 20, 30}, df.Time)
		assert.Equal(t, []float64{10.5, 20.5, 30.5}, df.Close.Values())
		assert.Equal(t, int64(30), df.Last().Time)
	})

	t.Run("order insensitive and idempotent", func(t *testing.T) {
		forward, err := Normalize(bars(1, 2, 3, 4))
		require.NoError(t, err)
		reversed, err := Normalize(bars(4, 3, 2, 1))
		require.NoError(t, err)
		assert.Equal(t, forward.Bars, reversed.Bars)

		again := make([]core.RawBar, 0, forward.Len())
		for _, b := range forward.Bars {
			again = append(again, core.NewRawBar(b.Time, b.Open, b.High, b.Low, b.Close, b.Volume))
		}
		twice, err := Normalize(again)
		require.NoError(t, err)
		assert.Equal(t, forward.Bars, twice.Bars)
	})

	t.Run("accepts numeric strings", func(t *testing.T) {
		var raw []core.RawBar
		payload := `[{"time":"1700000000","open":"1.5","high":2,"low":"1","close":"1.75","volume":"0"}]`
		require.NoError(t, json.Unmarshal([]byte(payload), &raw))

		df, err := Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, core.Bar{Time: 1700000000, Open: 1.5, High: 2, Low: 1, Close: 1.75}, df.Bars[0])
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Normalize(nil)
		assert.ErrorIs(t, err, core.ErrEmptySeries)
	})

	t.Run("duplicate timestamps", func(t *testing.T) {
		_, err := Normalize(bars(1, 2, 2, 3))
		var invalid *core.InvalidBarError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "time", invalid.Field)
		assert.Equal(t, "2", invalid.Value)
		assert.ErrorIs(t, err, errDuplicate)
	})
}

func TestNormalizeInvalidBars(t *testing.T) {
	tests := []struct {
		name  string
		bar   core.RawBar
		field string
	}{
		{"non numeric close", core.RawBar{Time: "1", Open: "1", High: "2", Low: "1", Close: "abc", Volume: "1"}, "close"},
		{"missing volume", core.RawBar{Time: "1", Open: "1", High: "2", Low: "1", Close: "1"}, "volume"},
		{"fractional time", core.RawBar{Time: "1.5", Open: "1", High: "2", Low: "1", Close: "1", Volume: "1"}, "time"},
		{"low above high", core.NewRawBar(1, 1, 1, 2, 1, 1), "low"},
		{"open above high", core.NewRawBar(1, 3, 2, 1, 1, 1), "open"},
		{"close below low", core.NewRawBar(1, 1, 2, 1, 0.5, 1), "close"},
		{"negative volume", core.NewRawBar(1, 1, 2, 1, 1, -1), "volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]core.RawBar{core.NewRawBar(0, 1, 1, 1, 1, 1), tt.bar})
			var invalid *core.InvalidBarError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, 1, invalid.Index)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}
