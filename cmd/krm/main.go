// Command krm analyzes KRM credit bureau reports, optionally paired with
// Findeks reports, and writes findings to the console and the output
// directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FACorreiaa/krm-analyzer/pkg/config"
	"github.com/FACorreiaa/krm-analyzer/pkg/cron"
)

const defaultWatchSchedule = "@every 5m"

type options struct {
	input string
	json  bool
	watch bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}

	logger := cfg.Log.NewLogger(stderr)
	slog.SetDefault(logger)

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}

	r := newRunner(deps, opts.input, stdout)
	r.json = opts.json

	if !opts.watch {
		_, err := r.run(ctx)
		return err
	}
	return watch(ctx, r)
}

// parseFlags applies command line flags over cfg. A positional argument
// names the input file or directory.
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("krm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	input := fs.String("input", cfg.Paths.InputDir, "KRM report file or directory of reports")
	fs.StringVar(&cfg.Paths.OutputDir, "output", cfg.Paths.OutputDir, "directory for report artifacts")
	fs.StringVar(&cfg.Paths.RulesFile, "rules", cfg.Paths.RulesFile, "YAML rules file merged over the defaults")
	fs.StringVar(&cfg.Paths.Formats, "formats", cfg.Paths.Formats, "artifact formats: xlsx,csv,json")
	fs.IntVar(&cfg.Batch.Workers, "workers", cfg.Batch.Workers, "documents analyzed in parallel")
	fs.StringVar(&cfg.Batch.Schedule, "schedule", cfg.Batch.Schedule, "cron schedule for watch mode")
	fs.BoolVar(&cfg.OCR.Enabled, "ocr", cfg.OCR.Enabled, "read Findeks reports with OCR")
	fs.StringVar(&cfg.Metrics.File, "metrics", cfg.Metrics.File, "write prometheus metrics to this file")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	fs.BoolVar(&opts.json, "json", false, "print results as JSON instead of the console report")
	fs.BoolVar(&opts.watch, "watch", false, "rerun on the schedule until interrupted")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.input = *input
	switch fs.NArg() {
	case 0:
	case 1:
		opts.input = fs.Arg(0)
	default:
		return opts, errors.New("expected at most one input path")
	}

	if opts.watch && cfg.Batch.Schedule == "" {
		cfg.Batch.Schedule = defaultWatchSchedule
	}
	if err := cfg.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func watch(ctx context.Context, r *runner) error {
	r.watch = true
	cfg, logger := r.deps.Config, r.deps.Logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := func(jobCtx context.Context) error {
		jobCtx, cancel := context.WithCancel(jobCtx)
		defer cancel()
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-jobCtx.Done():
			}
		}()
		_, err := r.run(jobCtx)
		return err
	}

	scheduler := cron.NewScheduler(cfg.Batch.Schedule, job, logger)
	if days := cfg.Batch.RetentionDays; days > 0 {
		scheduler.WithRetention(r.deps.Store, time.Duration(days)*24*time.Hour)
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	scheduler.RunNow()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info("watch mode stopped")
	return nil
}
