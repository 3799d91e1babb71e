// Package scheduler runs periodic jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"cattlevalue/internal/log"
)

// Job is one scheduled unit of work. It receives a context bounded by the
// job timeout.
type Job func(ctx context.Context)

// Scheduler wraps a cron runner. Standard 5-field expressions are used.
type Scheduler struct {
	cron    *cron.Cron
	logger  *log.Logger
	timeout time.Duration
	entries map[string]cron.EntryID
}

func New(logger *log.Logger, jobTimeout time.Duration) *Scheduler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.WithComponent(log.ComponentScheduler),
		timeout: jobTimeout,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers job under name. Invalid expressions are returned as errors.
func (s *Scheduler) Add(name, spec string, job Job) error {
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.entries[name] = id
	s.logger.Info("Job scheduled", "job", name, "schedule", spec)
	return nil
}

// Next reports the next activation of a named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.InfoContext(ctx, "Running scheduled job", "job", name)
	job(ctx)
	s.logger.InfoContext(ctx, "Scheduled job finished", "job", name, log.FieldDuration, time.Since(start).Milliseconds())
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", "jobs", len(s.entries))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("Stopping scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}
