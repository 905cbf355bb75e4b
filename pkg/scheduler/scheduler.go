// Package scheduler runs the process-owned background jobs: the remote
// reconnect attempt, the sync queue retry and the cache sweep. Jobs run on a
// fixed interval, never overlap with themselves, and get a context that is
// cancelled when the scheduler stops.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunNow for a name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// Job is a named periodic task.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Every is the interval between runs. Intervals under a second run every
	// second.
	Every time.Duration

	// Run does the work. Its context is cancelled on Stop and bounded by
	// Every.
	Run func(ctx context.Context) error
}

// Scheduler owns a cron runner.
type Scheduler struct {
	cron   *rcron.Cron
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards jobs and started
	mu      sync.Mutex
	jobs    map[string]Job
	started bool
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: rcron.New(
			rcron.WithLogger(cl),
			rcron.WithChain(rcron.Recover(cl), rcron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]Job),
	}
}

// Add registers job. Names must be unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job requires a name and a run func")
	}
	if job.Every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	if _, err := s.cron.AddFunc("@every "+job.Every.String(), func() { s.run(job) }); err != nil {
		return fmt.Errorf("scheduling job %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// RunNow runs the named job synchronously, outside the schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(job)
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) run(job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, max(job.Every, time.Second))
	defer cancel()

	err := job.Run(ctx)
	if err != nil {
		s.logger.Debug("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
	}
	return err
}

// Stop cancels running jobs and waits up to timeout for them to return.
func (s *Scheduler) Stop(timeout time.Duration) {
	s.cancel()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		s.logger.Warn("scheduler stop timed out waiting for running jobs")
	}
}

// cronLogger adapts zap to the cron runner's logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
