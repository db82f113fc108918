// Package scheduler runs background jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the status of a job run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of background work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name returns the job name
func (j JobFunc) Name() string { return j.JobName }

// Run calls the wrapped function
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Run records one execution of a job
type Run struct {
	ID          uuid.UUID
	Job         string
	Status      JobStatus
	Attempts    int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Config holds scheduler configuration
type Config struct {
	Location   *time.Location
	JobTimeout time.Duration
	Retries    int
	RetryDelay time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Location:   time.Local,
		JobTimeout: 30 * time.Minute,
		Retries:    2,
		RetryDelay: time.Minute,
	}
}

type entry struct {
	job     Job
	spec    string
	id      cron.EntryID
	running bool
	last    *Run
}

// Scheduler runs registered jobs on their cron spec. A job never runs
// twice at once: a tick that finds it still running is skipped.
type Scheduler struct {
	config Config
	cron   *cron.Cron
	logger *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	entries   map[string]*entry
}

// New creates a scheduler. Specs use the standard five fields, with an
// optional leading seconds field and descriptors such as @daily.
func New(config Config, logger *zap.Logger) *Scheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		config:  config,
		cron:    cron.New(cron.WithLocation(config.Location), cron.WithParser(parser)),
		logger:  logger.Named("scheduler"),
		entries: map[string]*entry{},
	}
}

// Register schedules job on spec
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, job.Name())
	}
	e := &entry{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { s.tick(e) })
	if err != nil {
		return fmt.Errorf("invalid spec %q for job %s: %w", spec, job.Name(), err)
	}
	e.id = id
	s.entries[job.Name()] = e
	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.entries)))
	return nil
}

// Stop stops the cron loop and waits for running jobs, or for ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger runs a job now, outside its schedule, and waits for it
func (s *Scheduler) Trigger(ctx context.Context, name string) (Run, error) {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return Run{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !s.isRunning {
		s.mu.Unlock()
		return Run{}, ErrSchedulerNotRunning
	}
	if e.running {
		s.mu.Unlock()
		return Run{}, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, name)
	}
	e.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	return s.execute(ctx, e), nil
}

// LastRun returns the latest run of a job
func (s *Scheduler) LastRun(name string) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok || e.last == nil {
		return Run{}, false
	}
	return *e.last, true
}

// NextRun returns when a job is next due. It is zero before Start.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(e.id).Next, true
}

func (s *Scheduler) tick(e *entry) {
	s.mu.Lock()
	if !s.isRunning || e.running {
		s.mu.Unlock()
		s.logger.Debug("Job tick skipped", zap.String("job", e.job.Name()))
		return
	}
	e.running = true
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	s.execute(ctx, e)
}

// execute runs the job with retries. The caller marks e running and adds
// to the wait group.
func (s *Scheduler) execute(ctx context.Context, e *entry) Run {
	defer s.wg.Done()

	run := &Run{ID: uuid.New(), Job: e.job.Name(), Status: JobStatusRunning, StartedAt: time.Now()}
	s.mu.Lock()
	e.last = run
	s.mu.Unlock()

	s.logger.Info("Processing job", zap.String("job", run.Job), zap.String("run_id", run.ID.String()))

	var err error
	for attempt := 0; attempt <= s.config.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				err = ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
			if ctx.Err() != nil {
				break
			}
		}
		err = s.attempt(ctx, e.job)
		s.mu.Lock()
		run.Attempts = attempt + 1
		s.mu.Unlock()
		if err == nil {
			break
		}
		s.logger.Warn("Job attempt failed",
			zap.String("job", run.Job),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	now := time.Now()
	run.CompletedAt = &now
	if err != nil {
		run.Status = JobStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = JobStatusSuccess
	}
	e.running = false
	out := *run
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Job failed", zap.String("job", out.Job), zap.Int("attempts", out.Attempts), zap.Error(err))
	} else {
		s.logger.Info("Job completed successfully", zap.String("job", out.Job), zap.Duration("took", now.Sub(out.StartedAt)))
	}
	return out
}

func (s *Scheduler) attempt(ctx context.Context, job Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	telemetry.WithProfilingLabels(ctx, func(ctx context.Context) {
		err = job.Run(ctx)
	}, "job", job.Name())
	return err
}
