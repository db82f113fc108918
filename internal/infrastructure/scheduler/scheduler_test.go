package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{Location: time.UTC, JobTimeout: time.Second, Retries: 2, RetryDelay: time.Millisecond}
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
}

func TestScheduler_RunsOnSpec(t *testing.T) {
	s := New(testConfig(), zap.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.Register("@every 1s", JobFunc{JobName: "tick", Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}}))
	startScheduler(t, s)

	next, ok := s.NextRun("tick")
	require.True(t, ok)
	assert.False(t, next.IsZero())

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		run, ok := s.LastRun("tick")
		return ok && run.Status == JobStatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_Register(t *testing.T) {
	s := New(testConfig(), nil)
	job := JobFunc{JobName: "backup", Fn: func(context.Context) error { return nil }}

	require.NoError(t, s.Register("0 3 * * *", job))
	assert.ErrorIs(t, s.Register("0 4 * * *", job), ErrJobAlreadyRegistered)
	assert.Error(t, s.Register("not a spec", JobFunc{JobName: "broken"}))
}

func TestScheduler_TriggerRetries(t *testing.T) {
	s := New(testConfig(), zap.NewNop())
	var calls atomic.Int32
	require.NoError(t, s.Register("@daily", JobFunc{JobName: "flaky", Fn: func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("disk busy")
		}
		return nil
	}}))

	_, err := s.Trigger(context.Background(), "flaky")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	startScheduler(t, s)
	run, err := s.Trigger(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, JobStatusSuccess, run.Status)
	assert.Equal(t, 3, run.Attempts)
	assert.NotNil(t, run.CompletedAt)

	_, err = s.Trigger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_TriggerFailsAfterRetries(t *testing.T) {
	s := New(testConfig(), zap.NewNop())
	require.NoError(t, s.Register("@daily", JobFunc{JobName: "broken", Fn: func(context.Context) error {
		panic("boom")
	}}))
	startScheduler(t, s)

	run, err := s.Trigger(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, run.Status)
	assert.Equal(t, 3, run.Attempts)
	assert.Contains(t, run.Error, "panicked")

	last, ok := s.LastRun("broken")
	require.True(t, ok)
	assert.Equal(t, run.ID, last.ID)
}
