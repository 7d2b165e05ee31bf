package analysis

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// RunBatch analyzes jobs with up to workers documents in flight. Results are
// in job order. A cancelled context marks the remaining jobs failed and is
// returned as the error.
func (s *Service) RunBatch(ctx context.Context, jobs []Job, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = s.AnalyzeFile(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(results)
	s.logger.Info("batch finished",
		slog.Int("documents", summary.Documents),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("critical", summary.Critical),
		slog.Int("warning", summary.Warning),
		slog.Int("workers", workers))
	return results, ctx.Err()
}
