// Package feed reads raw bars from CSV and JSON documents
package feed

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/raykavin/chartshot/pkg/core"
)

var (
	ErrNoBars        = errors.New("document holds no bars")
	ErrMissingColumn = errors.New("missing column")

	// defaultHeaderMap is the column order of header-less files
	defaultHeaderMap = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}

	headerAliases = map[string]string{
		"timestamp": "time",
		"date":      "time",
		"t":         "time",
		"o":         "open",
		"h":         "high",
		"l":         "low",
		"c":         "close",
		"v":         "volume",
		"vol":       "volume",
	}
)

// parseHeaders maps canonical column names to indexes. Files whose first
// cell is a number have no header row and use the default order.
func parseHeaders(headers []string) (headerMap map[string]int, hasHeader bool) {
	if _, err := strconv.ParseFloat(strings.TrimSpace(headers[0]), 64); err == nil {
		return defaultHeaderMap, false
	}

	headerMap = make(map[string]int, len(headers))
	for index, header := range headers {
		name := strings.ToLower(strings.TrimSpace(header))
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		if _, seen := headerMap[name]; !seen {
			headerMap[name] = index
		}
	}

	return headerMap, true
}

// ReadCSV reads bars from a CSV document, with or without a header row.
// A missing volume column reads as zero volume.
func ReadCSV(r io.Reader) ([]core.RawBar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(lines) == 0 {
		return nil, ErrNoBars
	}

	headerMap, hasHeader := parseHeaders(lines[0])
	if hasHeader {
		lines = lines[1:]
	}

	for _, column := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := headerMap[column]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}

	bars := make([]core.RawBar, 0, len(lines))
	for number, line := range lines {
		bar, err := parseBarFromLine(line, headerMap)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", number+1, err)
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	return bars, nil
}

func parseBarFromLine(line []string, headerMap map[string]int) (core.RawBar, error) {
	cell := func(name string) (json.Number, error) {
		index, ok := headerMap[name]
		if !ok {
			return "0", nil
		}
		if index >= len(line) {
			return "", fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return json.Number(strings.TrimSpace(line[index])), nil
	}

	var (
		bar core.RawBar
		err error
	)

	if bar.Time, err = cell("time"); err != nil {
		return bar, err
	}
	if bar.Open, err = cell("open"); err != nil {
		return bar, err
	}
	if bar.High, err = cell("high"); err != nil {
		return bar, err
	}
	if bar.Low, err = cell("low"); err != nil {
		return bar, err
	}
	if bar.Close, err = cell("close"); err != nil {
		return bar, err
	}
	if bar.Volume, err = cell("volume"); err != nil {
		return bar, err
	}

	return bar, nil
}
