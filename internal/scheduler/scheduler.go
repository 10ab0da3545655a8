// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work. The context is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler manages cron-based job scheduling with timezone support.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a new scheduler for the given timezone.
func NewScheduler(timezone string, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		// SkipIfStillRunning keeps a slow run from overlapping the next tick.
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		location: loc,
		logger:   logger,
		entries:  make(map[string]cron.EntryID),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Add registers job under name with a standard five-field cron spec,
// replacing any job already registered under that name.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule for %s %q: %w", name, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("add cron job %s: %w", name, err)
	}
	s.entries[name] = id
	s.logger.Info("job scheduled", "job", name, "spec", spec, "timezone", s.location.String())
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	s.logger.Info("job started", "job", name)
	if err := job(s.ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("job finished", "job", name, "duration", time.Since(start))
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the scheduler, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if s.started {
		<-s.cron.Stop().Done()
		s.started = false
	}
}

// Next returns the next activation time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	e := s.cron.Entry(id)
	if e.Next.IsZero() {
		return e.Schedule.Next(time.Now().In(s.location)), true
	}
	return e.Next, true
}
