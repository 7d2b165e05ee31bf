package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FACorreiaa/krm-analyzer/internal/domain/analysis"
	"github.com/FACorreiaa/krm-analyzer/internal/domain/export"
)

// runner resolves the input into jobs, runs the batch and writes every
// output of it.
type runner struct {
	deps    *Dependencies
	input   string
	workers int
	json    bool
	out     io.Writer

	// watch mode skips files already analyzed unchanged in this process
	watch bool
	mu    sync.Mutex
	seen  map[string]time.Time
}

type batchOutput struct {
	Summary analysis.BatchSummary `json:"summary"`
	Results []analysis.Result     `json:"results"`
}

func newRunner(deps *Dependencies, input string, out io.Writer) *runner {
	return &runner{
		deps:    deps,
		input:   input,
		workers: deps.Config.Batch.Workers,
		out:     out,
		seen:    make(map[string]time.Time),
	}
}

func (r *runner) jobs() ([]analysis.Job, error) {
	info, err := os.Stat(r.input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if !info.IsDir() {
		if analysis.IsSecondary(filepath.Base(r.input)) {
			return nil, fmt.Errorf("%s is a Findeks report, pass the KRM report instead", r.input)
		}
		job, err := analysis.JobFor(r.input)
		if err != nil {
			return nil, err
		}
		return []analysis.Job{job}, nil
	}
	return analysis.Discover(r.input)
}

// pending drops jobs whose files have not changed since they were last
// analyzed successfully. It returns the kept jobs and the modification time
// to record for each once it succeeds.
func (r *runner) pending(jobs []analysis.Job) ([]analysis.Job, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := jobs[:0]
	mods := make([]time.Time, 0, len(jobs))
	for _, job := range jobs {
		var mod time.Time
		if info, err := os.Stat(job.Primary); err == nil {
			mod = info.ModTime()
		}
		if sec, err := os.Stat(job.Secondary); job.Secondary != "" && err == nil && sec.ModTime().After(mod) {
			mod = sec.ModTime()
		}
		if last, ok := r.seen[seenKey(job)]; ok && !mod.IsZero() && !mod.After(last) {
			continue
		}
		out = append(out, job)
		mods = append(mods, mod)
	}
	return out, mods
}

// markSeen records the jobs whose results succeeded.
func (r *runner) markSeen(jobs []analysis.Job, mods []time.Time, results []analysis.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, res := range results {
		if res.Success && i < len(jobs) && !mods[i].IsZero() {
			r.seen[seenKey(jobs[i])] = mods[i]
		}
	}
}

func seenKey(job analysis.Job) string {
	return job.Primary + "|" + job.Secondary
}

func (r *runner) run(ctx context.Context) (analysis.BatchSummary, error) {
	logger := r.deps.Logger

	jobs, err := r.jobs()
	if err != nil {
		return analysis.BatchSummary{}, err
	}
	var mods []time.Time
	if r.watch {
		jobs, mods = r.pending(jobs)
	}
	if len(jobs) == 0 {
		logger.Info("no reports to analyze", slog.String("input", r.input))
		return analysis.BatchSummary{AllClean: true}, nil
	}

	results, batchErr := r.deps.Analyzer.RunBatch(ctx, jobs, r.workers)
	if r.watch {
		r.markSeen(jobs, mods, results)
	}

	for _, res := range results {
		if _, err := r.deps.Artifacts.Save(ctx, res); err != nil {
			logger.Error("failed to save report artifacts",
				slog.String("file", res.File),
				slog.Any("error", err))
		}
		if !r.json {
			r.deps.Console.Report(res)
		}
	}

	summary := analysis.Summarize(results)
	if r.json {
		if err := export.WriteJSON(r.out, batchOutput{Summary: summary, Results: results}); err != nil {
			return summary, err
		}
	} else {
		r.deps.Console.Summary(summary, r.deps.Config.Paths.OutputDir)
	}

	if path := r.deps.Config.Metrics.File; path != "" {
		if err := r.deps.Metrics.WriteTextfile(path); err != nil {
			logger.Warn("failed to write metrics", slog.String("file", path), slog.Any("error", err))
		}
	}

	if batchErr != nil && !errors.Is(batchErr, context.Canceled) {
		return summary, batchErr
	}
	return summary, nil
}
