// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled batch run.
type Job func(ctx context.Context) error

// Pruner removes stored runs older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Job
	batch   cron.Job
	timeout time.Duration
	pruner  Pruner
	keep    time.Duration
	pruneAt string
	logger  *slog.Logger
	now     func() time.Time
	manual  sync.WaitGroup
}

// NewScheduler runs job on the standard 5-field cron spec. A run that is
// still going when the next one is due, scheduled or from RunNow, causes
// that next one to be skipped.
func NewScheduler(spec string, job Job, logger *slog.Logger) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	s := &Scheduler{
		cron:    c,
		spec:    spec,
		job:     job,
		timeout: 30 * time.Minute,
		pruneAt: "0 3 * * *",
		logger:  logger,
		now:     time.Now,
	}
	s.batch = cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).
		Then(cron.FuncJob(s.runBatch))
	return s
}

// WithRetention prunes runs older than keep once a day.
func (s *Scheduler) WithRetention(p Pruner, keep time.Duration) *Scheduler {
	s.pruner = p
	s.keep = keep
	return s
}

// WithTimeout bounds a single batch run.
func (s *Scheduler) WithTimeout(d time.Duration) *Scheduler {
	s.timeout = d
	return s
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddJob(s.spec, s.batch); err != nil {
		return err
	}
	if s.pruner != nil && s.keep > 0 {
		if _, err := s.cron.AddFunc(s.pruneAt, s.prune); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.spec),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs. The returned context is done
// once running jobs, including those started by RunNow, have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	cronDone := s.cron.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.manual.Wait()
		cancel()
	}()
	return ctx
}

// RunNow triggers a batch outside the schedule. It is skipped when a batch
// is already running.
func (s *Scheduler) RunNow() {
	s.manual.Add(1)
	go func() {
		defer s.manual.Done()
		s.batch.Run()
	}()
}

func (s *Scheduler) runBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := s.now()
	s.logger.Info("starting scheduled batch")

	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled batch failed",
			slog.Any("error", err),
			slog.Duration("took", s.now().Sub(start)),
		)
		return
	}

	s.logger.Info("scheduled batch completed",
		slog.Duration("took", s.now().Sub(start)),
	)
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.pruner.Prune(ctx, s.now().Add(-s.keep))
	if err != nil {
		s.logger.Warn("failed to prune old runs", slog.Any("error", err))
		return
	}
	s.logger.Info("pruned old runs", slog.Int("removed", removed))
}
