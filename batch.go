package chartshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/raykavin/chartshot/pkg/chart"
	"github.com/raykavin/chartshot/pkg/feed"
	"github.com/raykavin/chartshot/pkg/metric"
	"github.com/schollz/progressbar/v3"
)

// BatchReport is the outcome of a batch run
type BatchReport struct {
	Rendered  []string
	Failed    map[string]error
	Durations []time.Duration
	Summary   metric.Summary
}

// Batch renders every CSV and JSON feed of dir into outDir, one PNG per
// file named after it. A failing file does not stop the batch.
func (c *Chartshot) Batch(ctx context.Context, dir, outDir, timeframe string) (*BatchReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read batch dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && feed.Supported(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	report := &BatchReport{Failed: make(map[string]error)}
	progressBar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
	)

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		output, err := c.batchFile(ctx, filepath.Join(dir, name), outDir, timeframe)
		if err != nil {
			c.log.WithError(err).WithField("file", name).Error("batch file failed")
			report.Failed[name] = err
		} else {
			report.Rendered = append(report.Rendered, output.path)
			report.Durations = append(report.Durations, output.elapsed)
		}

		if err := progressBar.Add(1); err != nil {
			c.log.Warnf("update progressbar fail: %v", err)
		}
	}

	report.Summary = metric.Summarize(report.Durations)
	return report, nil
}

type batchOutput struct {
	path    string
	elapsed time.Duration
}

func (c *Chartshot) batchFile(ctx context.Context, path, outDir, timeframe string) (*batchOutput, error) {
	doc, err := feed.File{Path: path}.Read(ctx)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	meta := chart.Meta{Symbol: doc.Symbol, Timeframe: timeframe}
	if meta.Symbol == "" {
		meta.Symbol = strings.ToUpper(base)
	}

	output := filepath.Join(outDir, base+".png")
	result, err := c.Render(ctx, staticFeed(doc.Bars), meta, output)
	if err != nil {
		return nil, err
	}

	return &batchOutput{path: output, elapsed: result.Elapsed}, nil
}
