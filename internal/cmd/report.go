package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/chart"
	"github.com/pothiers/cadence/internal/config"
	"github.com/pothiers/cadence/internal/output"
	"github.com/pothiers/cadence/internal/pipeline"
	"github.com/pothiers/cadence/internal/report"
	"github.com/pothiers/cadence/internal/source"
	"github.com/pothiers/cadence/internal/watcher"
)

var reportCmd = &cobra.Command{
	Use:   "report [paths...]",
	Short: "Compute moving averages once and print the report",
	Long: `Read every input (files, ** glob patterns, or - for stdin), reconcile one
record per header file and print the data-quality summary with the
per-instrument moving-average maxima.

Examples:
  cadence report data/cadence-201411.out
  cadence report "data/**/*.out" --window 3600 --chart cadence.png
  egrep -f patterns.dat /archive/2014123?/*/*/*.hdr | cadence report - -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cfg, log, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer log.Sync()

	paths, err := watcher.Expand(args)
	if err != nil {
		return err
	}
	_, err = runOnce(ctx, paths, cfg, output.New(cfg.Output, os.Stdout, showRates), log)
	return err
}

// runOnce runs the pipeline over paths, renders whatever report came out
// and writes the chart when one is configured.
func runOnce(ctx context.Context, paths []string, cfg config.Config, renderer output.Renderer, log *zap.SugaredLogger) (*report.Report, error) {
	rep, runErr := pipeline.Run(ctx, source.New(paths), cfg)
	if rep == nil {
		return nil, runErr
	}
	if err := renderer.Render(rep); err != nil {
		log.Errorw("Render failed", zap.Error(err))
	}
	if runErr != nil {
		return rep, runErr
	}
	if cfg.Chart != "" {
		if err := writeChart(cfg, rep); err != nil {
			return rep, err
		}
		log.Infow("Chart written", "path", cfg.Chart)
	}
	return rep, nil
}

func writeChart(cfg config.Config, rep *report.Report) (err error) {
	table := rep.Table()
	if table == nil {
		return errors.New("no moving-average table to chart")
	}
	f, err := os.Create(cfg.Chart)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return chart.Render(f, chart.Input{
		Table:          table,
		Categories:     table.Categories,
		Times:          table.Times,
		Window:         table.Window,
		StartOfDayHour: cfg.StartOfDayHour,
	})
}
