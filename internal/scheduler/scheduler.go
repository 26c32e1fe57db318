package scheduler

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/weather-history/internal/weather"
)

var (
	ErrAlreadyRunning = errors.New("automatic search already running")
	ErrNotRunning     = errors.New("automatic search is not running")
)

// DefaultInterval is the period between automatic fetches.
const DefaultInterval = 5 * time.Minute

const runTimeout = 30 * time.Second

// Fetcher performs one fetch-and-store for a city.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (weather.Reading, error)
}

// State is the scheduler's position in its Idle -> Armed -> Idle lifecycle.
type State string

const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
)

// Job describes the armed recurring search.
type Job struct {
	ID        string        `json:"id"`
	City      string        `json:"city"`
	Interval  time.Duration `json:"interval"`
	StartedAt time.Time     `json:"startedAt"`
}

// Scheduler periodically re-fetches weather for a single city.
// At most one job is armed at a time.
type Scheduler struct {
	fetcher  Fetcher
	interval time.Duration
	clock    clock.Clock

	mu     sync.Mutex
	cron   *gocron.Scheduler
	cancel context.CancelFunc
	job    *Job
}

// New creates a new Scheduler. A non-positive interval selects DefaultInterval
// and a nil clock means the wall clock.
func New(fetcher Fetcher, interval time.Duration, clk clock.Clock) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Scheduler{
		fetcher:  fetcher,
		interval: interval,
		clock:    clk,
	}
}

// Start arms a job that fetches for city every interval, then fetches once
// right away and returns when that first fetch is done. The job stays armed
// even if the first fetch fails; its outcome is reported through the
// fetcher's status like every later run. The lock is not held during the
// first fetch, so Stop may cancel it.
func (s *Scheduler) Start(ctx context.Context, city string) (Job, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Job{}, weather.ErrEmptyCity
	}

	job, runCtx, err := s.arm(city)
	if err != nil {
		return Job{}, err
	}

	fetchCtx, cancel := context.WithCancel(runCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if _, err := s.fetcher.Fetch(fetchCtx, city); err != nil {
		log.Printf("scheduler: initial fetch failed for %s: %v", city, err)
	}
	return job, nil
}

func (s *Scheduler) arm(city string) (Job, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job != nil {
		return Job{}, nil, ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.Background())

	cron := gocron.NewScheduler(time.Local)
	cron.SingletonModeAll()

	_, err := cron.Every(s.interval).WaitForSchedule().Tag(city).Do(func() {
		log.Printf("scheduler: running weather fetch job for %s", city)

		fetchCtx, fetchCancel := context.WithTimeout(runCtx, runTimeout)
		defer fetchCancel()

		if _, err := s.fetcher.Fetch(fetchCtx, city); err != nil {
			log.Printf("scheduler: fetch failed for %s: %v", city, err)
		}
	})
	if err != nil {
		cancel()
		return Job{}, nil, err
	}

	cron.StartAsync()

	s.cron = cron
	s.cancel = cancel
	s.job = &Job{
		ID:        uuid.NewString(),
		City:      city,
		Interval:  s.interval,
		StartedAt: s.clock.Now(),
	}
	log.Printf("INFO: scheduler armed for %s every %s (job %s)", city, s.interval, s.job.ID)
	return *s.job, runCtx, nil
}

// Stop clears the armed job and stops the worker; no further fetches run
// after it returns.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil {
		return ErrNotRunning
	}

	s.cancel()
	s.cron.Clear()
	s.cron.Stop()

	log.Printf("INFO: scheduler stopped for %s (job %s)", s.job.City, s.job.ID)
	s.cron = nil
	s.cancel = nil
	s.job = nil
	return nil
}

// Shutdown stops the scheduler if it is armed; it is safe to call on exit.
func (s *Scheduler) Shutdown() {
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		log.Printf("scheduler: shutdown: %v", err)
	}
}

// State reports whether a job is armed.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return StateIdle
	}
	return StateArmed
}

// Job returns the armed job, if any.
func (s *Scheduler) Job() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return Job{}, false
	}
	return *s.job, true
}
