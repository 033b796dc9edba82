// Package normalize turns caller supplied bars into the canonical series
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/StudioSol/set"
	"github.com/raykavin/chartshot/pkg/core"
)

// Normalize sorts bars ascending by time (stable), coerces every field to a
// number and validates the OHLCV invariants. Duplicate timestamps are
// rejected.
func Normalize(raw []core.RawBar) (*core.Dataframe, error) {
	if len(raw) == 0 {
		return nil, core.ErrEmptySeries
	}

	type indexed struct {
		index int
		bar   core.Bar
	}

	items := make([]indexed, 0, len(raw))
	for i, r := range raw {
		bar, err := coerce(i, r)
		if err != nil {
			return nil, err
		}

		if field, ok := bar.Validate(); !ok {
			return nil, &core.InvalidBarError{Index: i, Field: field, Err: errInvariant}
		}

		items = append(items, indexed{index: i, bar: bar})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].bar.Time < items[j].bar.Time
	})

	duplicates := set.NewLinkedHashSetINT64()
	firstIndex := -1
	for i := 1; i < len(items); i++ {
		if items[i].bar.Time == items[i-1].bar.Time {
			duplicates.Add(items[i].bar.Time)
			if firstIndex < 0 {
				firstIndex = items[i].index
			}
		}
	}

	if firstIndex >= 0 {
		stamps := make([]string, 0)
		for ts := range duplicates.Iter() {
			stamps = append(stamps, fmt.Sprint(ts))
		}
		return nil, &core.InvalidBarError{
			Index: firstIndex,
			Field: "time",
			Value: strings.Join(stamps, ","),
			Err:   errDuplicate,
		}
	}

	bars := make([]core.Bar, len(items))
	for i, item := range items {
		bars[i] = item.bar
	}

	return core.NewDataframe(bars), nil
}

var (
	errInvariant = fmt.Errorf("ohlcv invariant violated")
	errDuplicate = fmt.Errorf("duplicate timestamp")
	errNotNumber = fmt.Errorf("not a finite number")
)

func coerce(index int, raw core.RawBar) (core.Bar, error) {
	ts, err := parseTime(raw.Time)
	if err != nil {
		return core.Bar{}, &core.InvalidBarError{Index: index, Field: "time", Value: raw.Time.String(), Err: err}
	}

	bar := core.Bar{Time: ts}
	fields := []struct {
		name  string
		value json.Number
		dst   *float64
	}{
		{"open", raw.Open, &bar.Open},
		{"high", raw.High, &bar.High},
		{"low", raw.Low, &bar.Low},
		{"close", raw.Close, &bar.Close},
		{"volume", raw.Volume, &bar.Volume},
	}

	for _, f := range fields {
		v, err := parseNumber(f.value)
		if err != nil {
			return core.Bar{}, &core.InvalidBarError{Index: index, Field: f.name, Value: f.value.String(), Err: err}
		}
		*f.dst = v
	}

	return bar, nil
}

func parseNumber(n json.Number) (float64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, errNotNumber
	}

	v, err := json.Number(s).Float64()
	if err != nil {
		return 0, errNotNumber
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotNumber
	}

	return v, nil
}

func parseTime(n json.Number) (int64, error) {
	s := json.Number(strings.TrimSpace(n.String()))
	if ts, err := s.Int64(); err == nil {
		return ts, nil
	}

	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}

	if v != math.Trunc(v) {
		return 0, fmt.Errorf("timestamp %v is not integral", v)
	}

	return int64(v), nil
}
