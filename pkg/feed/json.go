package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/raykavin/chartshot/pkg/core"
)

// Document is the content of a JSON feed
type Document struct {
	Bars   []core.RawBar
	Symbol string // base symbol when the document names one
}

type geckoResponse struct {
	Data struct {
		Attributes struct {
			OHLCVList [][]json.Number `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
	Meta struct {
		Base struct {
			Symbol string `json:"symbol"`
		} `json:"base"`
	} `json:"meta"`
}

// ReadJSON reads bars from an array of bar objects, an array of
// [time, open, high, low, close, volume] rows or a CoinGecko OHLCV response
func ReadJSON(r io.Reader) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, ErrNoBars
	}

	var doc Document
	switch content[0] {
	case '[':
		doc.Bars, err = readArray(content)
	case '{':
		var response geckoResponse
		if err = decode(content, &response); err == nil {
			doc.Symbol = response.Meta.Base.Symbol
			doc.Bars, err = fromRows(response.Data.Attributes.OHLCVList)
		}
	default:
		err = fmt.Errorf("unexpected json document starting with %q", content[0])
	}

	if err != nil {
		return nil, err
	}

	if len(doc.Bars) == 0 {
		return nil, ErrNoBars
	}

	return &doc, nil
}

func decode(content []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func readArray(content []byte) ([]core.RawBar, error) {
	var items []json.RawMessage
	if err := decode(content, &items); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, ErrNoBars
	}

	first := bytes.TrimSpace(items[0])
	if len(first) > 0 && first[0] == '[' {
		var rows [][]json.Number
		if err := decode(content, &rows); err != nil {
			return nil, err
		}
		return fromRows(rows)
	}

	var bars []core.RawBar
	if err := decode(content, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func fromRows(rows [][]json.Number) ([]core.RawBar, error) {
	bars := make([]core.RawBar, 0, len(rows))
	for index, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("row %d: %w: want at least 5 values, got %d", index, ErrMissingColumn, len(row))
		}

		bar := core.RawBar{
			Time:   row[0],
			Open:   row[1],
			High:   row[2],
			Low:    row[3],
			Close:  row[4],
			Volume: "0",
		}
		if len(row) > 5 {
			bar.Volume = row[5]
		}

		bars = append(bars, bar)
	}
	return bars, nil
}
