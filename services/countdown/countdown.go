// Package countdown drives quiz countdowns from a gocron scheduler.
package countdown

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
)

// Scheduler runs one recurring job per registered id.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       core.Logger

	mu   sync.Mutex
	jobs map[string]*gocron.Job
}

func New(log core.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll() // a slow tick is never overlapped by the next one
	return &Scheduler{scheduler: s, log: log, jobs: make(map[string]*gocron.Job)}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop removes every job and stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.jobs = make(map[string]*gocron.Job)
	s.mu.Unlock()
	s.scheduler.Clear()
	s.scheduler.Stop()
}

// Register calls tick every interval, the first call one interval from now.
func (s *Scheduler) Register(id string, every time.Duration, tick func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		return errors.Errorf("countdown %s already registered", id)
	}
	job, err := s.scheduler.Every(every).WaitForSchedule().Tag(id).Do(tick)
	if err != nil {
		return errors.Wrapf(err, "scheduling countdown %s", id)
	}
	s.jobs[id] = job
	s.log.Debug("countdown registered", "id", id, "every", every.String())
	return nil
}

// Unregister stops calling the id's tick. A tick already running is not waited for.
func (s *Scheduler) Unregister(id string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	delete(s.jobs, id)
	s.mu.Unlock()
	if ok {
		s.scheduler.RemoveByReference(job)
	}
}

// Len returns the number of registered countdowns.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
