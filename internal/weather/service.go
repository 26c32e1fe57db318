package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"code.cloudfoundry.org/clock"
)

var (
	ErrEmptyCity     = errors.New("city must not be empty")
	ErrNoProvider    = errors.New("no weather provider configured")
	ErrFetchFailed   = errors.New("weather fetch failed")
	ErrPersistFailed = errors.New("saving reading failed")
)

// Service orchestrates fetching from the provider and persisting readings.
// It is the UI-agnostic layer the HTTP handlers and the scheduler share.
type Service struct {
	store    Store
	provider Provider
	clock    clock.Clock

	mu     sync.RWMutex
	status Status
}

// NewService creates a new Service. A nil clock means the wall clock.
func NewService(store Store, provider Provider, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Service{
		store:    store,
		provider: provider,
		clock:    clk,
	}
}

// Fetch queries the provider for city, appends the reading to the store and
// records the outcome as the current status. Exactly one row is appended per
// successful fetch; nothing is appended on failure.
func (s *Service) Fetch(ctx context.Context, city string) (Reading, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Reading{}, ErrEmptyCity
	}
	if s.provider == nil {
		log.Printf("ERROR: No provider available to fetch weather data for %s", city)
		return Reading{}, ErrNoProvider
	}

	obs, err := s.provider.Fetch(ctx, city)
	if err != nil {
		log.Printf("provider %s fetch failed for %s: %v", s.provider.Name(), city, err)
		err = fmt.Errorf("%w: %v", ErrFetchFailed, err)
		now := s.clock.Now()
		s.setStatus(Status{City: city, Provider: s.provider.Name(), Error: err.Error(), UpdatedAt: &now})
		return Reading{}, err
	}

	source := obs.ProviderName
	if source == "" {
		source = s.provider.Name()
	}

	reading := Reading{
		Timestamp:   s.clock.Now(),
		City:        city,
		Condition:   obs.Condition,
		Temperature: obs.TemperatureC,
	}

	if err := s.store.Append(reading); err != nil {
		log.Printf("ERROR: saving reading for %s: %v", city, err)
		err = fmt.Errorf("%w: %v", ErrPersistFailed, err)
		s.setStatus(Status{City: city, Provider: source, Reading: &reading, Error: err.Error(), UpdatedAt: &reading.Timestamp})
		return reading, err
	}

	s.setStatus(Status{City: city, Provider: source, Reading: &reading, UpdatedAt: &reading.Timestamp})
	return reading, nil
}

// Status returns the outcome of the most recent fetch.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Service) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// History delegates to the underlying store.
func (s *Service) History() ([]Reading, error) {
	return s.store.ReadAll()
}

// ClearHistory delegates to the underlying store.
func (s *Service) ClearHistory() error {
	return s.store.Clear()
}

func formatReading(r Reading) string {
	return fmt.Sprintf("Weather conditions in %s: %s\nTemperature: %g °C", r.City, r.Condition, r.Temperature)
}
