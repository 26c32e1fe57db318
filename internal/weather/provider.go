package weather

import (
	"context"
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, city string) (Observation, error)
}

// Store is the contract the spreadsheet store (and the in-memory store) must satisfy.
// ReadAll on a store that has never been written returns an empty slice and no error.
type Store interface {
	Append(r Reading) error
	ReadAll() ([]Reading, error)
	Clear() error
}
