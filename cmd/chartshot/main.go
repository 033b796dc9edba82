package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raykavin/chartshot"
	"github.com/raykavin/chartshot/pkg/chart"
	"github.com/raykavin/chartshot/pkg/config"
	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/feed"
	"github.com/spf13/cobra"
)

// Command line flags
var (
	configFile string

	// Render command flags
	inputFile  string
	outputFile string
	symbol     string
	timeframe  string
	source     string
	renderer   string
	telegram   bool
	mail       bool
	summary    bool

	// Batch command flags
	batchDir string
	batchOut string

	// History command flags
	limit         int
	historySymbol string

	// Serve command flags
	addr string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:     "chartshot",
		Short:   "Render candlestick, RSI and MACD chart images",
		Version: "1.0.0",
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (e.g. ./chartshot.yaml)")

	rootCmd.AddCommand(buildRenderCmd())
	rootCmd.AddCommand(buildBatchCmd())
	rootCmd.AddCommand(buildHistoryCmd())
	rootCmd.AddCommand(buildServeCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render one chart from a CSV or JSON file",
		RunE:  runRender,
	}

	renderCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Bars file (e.g. ./hat.csv)")
	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output PNG (e.g. ./hat.png)")
	renderCmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Symbol shown in the title (e.g. HAT)")
	renderCmd.Flags().StringVarP(&timeframe, "timeframe", "t", "", "Timeframe shown in the title (e.g. 1m)")
	renderCmd.Flags().StringVar(&source, "source", "", "Source label shown in the title")
	renderCmd.Flags().StringVarP(&renderer, "renderer", "r", "", "Panel renderer: gochart or browser")
	renderCmd.Flags().BoolVar(&telegram, "telegram", false, "Send the chart to the configured Telegram users")
	renderCmd.Flags().BoolVar(&mail, "mail", false, "Mail the chart to the configured recipient")
	renderCmd.Flags().BoolVar(&summary, "summary", false, "Print stage timings")

	renderCmd.MarkFlagRequired("input")

	return renderCmd
}

func buildBatchCmd() *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Render a chart for every bars file of a directory",
		RunE:  runBatch,
	}

	batchCmd.Flags().StringVarP(&batchDir, "dir", "d", "", "Directory of bars files")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "./charts", "Output directory")
	batchCmd.Flags().StringVarP(&timeframe, "timeframe", "t", "", "Timeframe shown in the titles (e.g. 1m)")
	batchCmd.Flags().StringVarP(&renderer, "renderer", "r", "", "Panel renderer: gochart or browser")

	batchCmd.MarkFlagRequired("dir")

	return batchCmd
}

func buildHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List the last rendered charts",
		RunE:  runHistory,
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of builds to list")
	historyCmd.Flags().StringVarP(&historySymbol, "symbol", "s", "", "Only list this symbol")

	return historyCmd
}

func buildServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chart builds over HTTP",
		RunE:  runServe,
	}

	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from configuration, :8080)")
	serveCmd.Flags().StringVarP(&renderer, "renderer", "r", "", "Panel renderer: gochart or browser")

	return serveCmd
}

func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if renderer != "" {
		settings.Render.Renderer = renderer
	}
	if source != "" {
		settings.Render.Source = source
	}
	if telegram {
		settings.Telegram.Enabled = true
	}
	if mail {
		settings.Mail.Enabled = true
	}
	if timeframe != "" {
		if _, err := config.ParseTimeframe(timeframe); err != nil {
			return nil, err
		}
	}

	return settings, settings.Validate()
}

func initialize() (*chartshot.Chartshot, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return chartshot.New(*settings)
}

func runRender(cmd *cobra.Command, _ []string) error {
	if outputFile == "" && !telegram && !mail {
		return errors.New("nothing to do: set --output, --telegram or --mail")
	}

	app, err := initialize()
	if err != nil {
		return err
	}
	defer app.Close()

	doc, err := feed.File{Path: inputFile}.Read(cmd.Context())
	if err != nil {
		return err
	}

	meta := chart.Meta{Symbol: symbol, Timeframe: timeframe, Source: source}
	if meta.Symbol == "" {
		meta.Symbol = doc.Symbol
	}

	result, err := app.Render(cmd.Context(), chartshot.StaticFeed(doc.Bars), meta, outputFile)
	if err != nil {
		return err
	}

	if summary {
		chartshot.PrintSummary(cmd.OutOrStdout(), result.Meta, result)
	}

	return nil
}

func runBatch(cmd *cobra.Command, _ []string) error {
	app, err := initialize()
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Batch(cmd.Context(), batchDir, batchOut, timeframe)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		chartshot.PrintBatch(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return err
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(report.Failed), len(report.Failed)+len(report.Rendered))
	}

	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	app, err := initialize()
	if err != nil {
		return err
	}
	defer app.Close()

	var filters []core.RecordFilter
	if historySymbol != "" {
		filters = append(filters, core.WithSymbol(historySymbol))
	}

	return app.PrintHistory(cmd.OutOrStdout(), limit, filters...)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if addr != "" {
		settings.Server.Addr = addr
	}

	app, err := chartshot.New(*settings)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Start()

	srv := &http.Server{
		Addr:         settings.Server.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  settings.Server.ReadTimeout,
		WriteTimeout: settings.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		chartshot.DefaultLog.WithField("addr", srv.Addr).Info("serving charts")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
