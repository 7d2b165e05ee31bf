package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	before time.Time
	err    error
}

func (p *fakePruner) Prune(_ context.Context, before time.Time) (int, error) {
	p.before = before
	return 2, p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunNow(t *testing.T) {
	done := make(chan struct{})
	s := NewScheduler("@every 1h", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		close(done)
		return nil
	}, testLogger())

	s.RunNow()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not run")
	}
}

func TestStopWaitsForRunNow(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	s := NewScheduler("@every 1h", func(context.Context) error {
		close(started)
		<-release
		return nil
	}, testLogger())

	s.RunNow()
	<-started

	stopped := s.Stop()
	select {
	case <-stopped.Done():
		t.Fatal("stop returned before the running batch finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not finish")
	}
}

func TestRunNowSkipsWhileRunning(t *testing.T) {
	var calls atomic.Int32
	started, release := make(chan struct{}), make(chan struct{})
	s := NewScheduler("@every 1h", func(context.Context) error {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	}, testLogger())

	s.RunNow()
	<-started
	s.batch.Run()
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-s.Stop().Done()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunNowRecovers(t *testing.T) {
	s := NewScheduler("@every 1h", func(context.Context) error {
		panic("boom")
	}, testLogger())

	s.RunNow()
	select {
	case <-s.Stop().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not finish")
	}
}

func TestRunBatchError(t *testing.T) {
	calls := 0
	s := NewScheduler("@every 1h", func(context.Context) error {
		calls++
		return errors.New("boom")
	}, testLogger())

	s.runBatch()
	assert.Equal(t, 1, calls)
}

func TestStartRegistersJobs(t *testing.T) {
	s := NewScheduler("*/5 * * * *", func(context.Context) error { return nil }, testLogger()).
		WithRetention(&fakePruner{}, 24*time.Hour)

	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 2)
}

func TestStartWithoutRetention(t *testing.T) {
	s := NewScheduler("@hourly", func(context.Context) error { return nil }, testLogger())

	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 1)
}

func TestStartInvalidSchedule(t *testing.T) {
	s := NewScheduler("not a schedule", func(context.Context) error { return nil }, testLogger())
	assert.Error(t, s.Start())
}

func TestPruneCutoff(t *testing.T) {
	now := time.Date(2025, 3, 12, 3, 0, 0, 0, time.UTC)
	p := &fakePruner{}
	s := NewScheduler("@daily", func(context.Context) error { return nil }, testLogger()).
		WithRetention(p, 7*24*time.Hour)
	s.now = func() time.Time { return now }

	s.prune()
	assert.Equal(t, now.AddDate(0, 0, -7), p.before)
}
