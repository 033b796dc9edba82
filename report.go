package chartshot

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/chartshot/pkg/chart"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/samber/lo"
)

// staticFeed serves bars already in memory
type staticFeed []core.RawBar

func (f staticFeed) Bars(context.Context) ([]core.RawBar, error) {
	return f, nil
}

// StaticFeed wraps bars already decoded as a core.Feeder
func StaticFeed(bars []core.RawBar) core.Feeder {
	return staticFeed(bars)
}

var stageOrder = []core.Stage{
	core.StageNormalize,
	core.StageIndicators,
	core.StageAlign,
	core.StageLayout,
	core.StageRender,
	core.StageCompose,
}

// PrintSummary writes the stage timings and last bar of a build
func PrintSummary(w io.Writer, meta chart.Meta, result *chart.Result) {
	fmt.Fprintf(w, "------ %s ------\n", meta.Title())

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Stage", "Elapsed"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	for _, stage := range stageOrder {
		table.Append([]string{string(stage), result.Durations[stage].Round(time.Microsecond).String()})
	}
	table.SetFooter([]string{"total", result.Elapsed.Round(time.Microsecond).String()})
	table.Render()

	last := result.Last
	fmt.Fprintf(w, "BARS:     %d (%s renderer)\n", result.Bars, result.Renderer)
	fmt.Fprintf(w, "LAST BAR: %s O: %g H: %g L: %g C: %g V: %g\n",
		last.GetTime().Format(time.DateTime), last.Open, last.High, last.Low, last.Close, last.Volume)
	fmt.Fprintf(w, "IMAGE:    %d bytes\n", len(result.Image))
}

// PrintBatch writes the batch outcome with a histogram of build times
func PrintBatch(w io.Writer, report *BatchReport) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rendered", "Failed", "Mean", "P50", "P95", "Max"})
	table.Append([]string{
		strconv.Itoa(len(report.Rendered)),
		strconv.Itoa(len(report.Failed)),
		report.Summary.Mean.Round(time.Millisecond).String(),
		report.Summary.P50.Round(time.Millisecond).String(),
		report.Summary.P95.Round(time.Millisecond).String(),
		report.Summary.Max.Round(time.Millisecond).String(),
	})
	table.Render()

	names := lo.Keys(report.Failed)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "FAILED %s: %v\n", name, report.Failed[name])
	}

	if len(report.Durations) > 1 {
		fmt.Fprintln(w, "-- BUILD TIME (ms) --")
		millis := lo.Map(report.Durations, func(d time.Duration, _ int) float64 {
			return float64(d) / float64(time.Millisecond)
		})
		hist := histogram.Hist(10, millis)
		histogram.Fprint(w, hist, histogram.Linear(10))
	}
}

// PrintHistory writes the last builds as a table, newest first
func (c *Chartshot) PrintHistory(w io.Writer, limit int, filters ...core.RecordFilter) error {
	if c.history == nil {
		return fmt.Errorf("history is disabled")
	}

	records, err := c.history.Last(limit, filters...)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Created", "Symbol", "TF", "Renderer", "Bars", "Bytes", "Elapsed", "Status"})
	for _, record := range records {
		status := "ok"
		if record.Failed() {
			status = record.Error
		}
		table.Append([]string{
			strconv.FormatInt(record.ID, 10),
			record.CreatedAt.Format(time.DateTime),
			record.Symbol,
			record.Timeframe,
			record.Renderer,
			strconv.Itoa(record.Bars),
			strconv.Itoa(record.Bytes),
			record.Duration.Round(time.Millisecond).String(),
			status,
		})
	}
	table.Render()

	return nil
}
