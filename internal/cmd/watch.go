package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/config"
	"github.com/pothiers/cadence/internal/hub"
	"github.com/pothiers/cadence/internal/output"
	"github.com/pothiers/cadence/internal/report"
	"github.com/pothiers/cadence/internal/server"
	"github.com/pothiers/cadence/internal/watcher"
)

// debounce coalesces the burst of events a single rewrite produces.
const debounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Recompute the report whenever an input file is rewritten",
	Long: `Run the report, then watch the input files and run it again from scratch
each time one of them is rewritten. Every run reads the whole input before
aggregating.

Examples:
  cadence watch /home/pothiers/cadence/cadence.out
  cadence watch "data/**/*.out" --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args, false)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve [paths...]",
	Short: "Watch the inputs and serve the latest report over HTTP",
	Long: `Like watch, and additionally serve the latest report:

  GET /healthz          liveness and last run time
  GET /api/summary      data-quality counts and per-category statistics
  GET /api/rates        moving-average entries (?category= to filter)
  GET /api/volumes      summed input volume per instant (?category= to filter)
  GET /api/chart.png    per-night chart of the moving average
  GET /ws               websocket receiving every new report

Examples:
  cadence serve cadence.out --port 8080`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args, true)
	},
}

func init() {
	serveCmd.Flags().StringP("port", "p", "8080", "HTTP listen port")
	cobra.CheckErr(viper.BindPFlag(config.KeyPort, serveCmd.Flags().Lookup("port")))

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

func runWatch(cmd *cobra.Command, args []string, serve bool) error {
	// --- Set up context with graceful shutdown ---
	sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	ctx, cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	// --- Resolve and watch inputs ---
	paths, err := watcher.Expand(args)
	if err != nil {
		return err
	}
	w, err := watcher.New(paths, log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if len(w.Paths()) == 0 {
		return fmt.Errorf("nothing to watch in %v", args)
	}
	log.Infow("Watching inputs", "files", w.Paths())

	// --- Publish reports ---
	reports := make(chan *report.Report, 4)
	h := hub.New(reports, log)
	go h.Start(ctx)

	if serve {
		srv := server.New(h, cfg.Port, cfg.StartOfDayHour, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Errorw("Server stopped", zap.Error(err))
				cancel()
			}
		}()
		log.Infow("Serving reports", "port", cfg.Port)
	}

	renderer := output.New(cfg.Output, os.Stdout, showRates)
	fp := watcher.NewFingerprint()
	run := func() {
		rep, err := runOnce(ctx, paths, cfg, renderer, log)
		if err != nil {
			log.Errorw("Run failed", zap.Error(err))
		}
		if rep == nil {
			return
		}
		select {
		case reports <- rep:
		case <-ctx.Done():
		}
	}

	go w.Start(ctx)
	fp.Update(paths)
	run()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "cadence shutting down")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			log.Debugw("Input changed", "path", ev.Path, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				resetTimer(timer, debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if fp.Update(paths) {
				run()
			}
		}
	}
}

// resetTimer restarts t, dropping a tick that fired but was never received.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
