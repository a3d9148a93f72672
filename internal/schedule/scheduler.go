// Package schedule triggers a job on a fixed interval for the life of the process.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/settings"

	log "github.com/sirupsen/logrus"
)

// Job is one unit of scheduled work. Returned errors are logged.
type Job func(ctx context.Context) error

// Scheduler runs a job once on start and then on every tick. Each run gets
// its own goroutine so a slow run never delays the ticker; the job is
// expected to drop overlapping runs itself.
type Scheduler struct {
	name     string
	job      Job
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	running sync.WaitGroup
}

// New constructs a Scheduler. A non-positive interval uses the default sync interval.
func New(name string, interval time.Duration, job Job) *Scheduler {
	if job == nil {
		return nil
	}
	if interval <= 0 {
		interval = settings.DefaultSyncInterval
	}
	return &Scheduler{name: name, job: job, interval: interval}
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	if s == nil {
		return 0
	}
	return s.interval
}

// Start runs the loop in the background until ctx is cancelled or Stop is
// called. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.loop.Add(1)
	go s.run(ctx)
	log.Infof("%s scheduler started (interval=%s)", s.name, s.interval)
}

// Stop ends the loop and waits for in-flight runs to return. A stopped
// scheduler may be started again.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.loop.Wait()
	s.running.Wait()
	s.cancel = nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.loop.Done()

	s.trigger(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("%s scheduler: job panicked: %v", s.name, r)
			}
		}()
		if err := s.job(ctx); err != nil {
			log.WithError(err).Warnf("%s scheduler: run failed", s.name)
		}
	}()
}
