package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is a unit of periodic work. The scheduler passes the tick time so jobs
// never need to read the wall clock themselves; tests invoke jobs directly
// with synthetic times instead of sleeping.
type Job func(ctx context.Context, now time.Time)

type task struct {
	name     string
	interval time.Duration
	job      Job
}

// Scheduler runs named jobs on fixed intervals until stopped
type Scheduler struct {
	mu     sync.Mutex
	tasks  []task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an idle Scheduler
func New() *Scheduler {
	return &Scheduler{}
}

// Add registers a job to run every interval. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task{name: name, interval: interval, job: job})
}

// Start launches one goroutine per registered job
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.run(t)
	}
}

func (s *Scheduler) run(t task) {
	defer s.wg.Done()
	log.Printf("[Scheduler] %s every %s", t.name, t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			log.Printf("[Scheduler] %s stopped", t.name)
			return
		case now := <-ticker.C:
			t.job(s.ctx, now)
		}
	}
}

// Stop cancels all jobs and waits for in-flight ticks to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
}
