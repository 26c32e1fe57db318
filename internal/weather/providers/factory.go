package providers

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-history/internal/weather"
)

const (
	NameOpenWeather = "openweathermap"
	NameWeatherAPI  = "weatherapi"
)

// Settings selects and configures the provider used by the weather client.
type Settings struct {
	Name       string
	APIKey     string
	BaseURL    string
	HTTP       HTTPClientConfig
	RateLimit  float64
	RateBurst  int
	MaxRetries int
}

// New builds the named provider behind a rate limiter.
func New(s Settings) (weather.Provider, error) {
	httpCfg := s.HTTP
	if s.MaxRetries > 0 {
		httpCfg.Backoff = BackoffConfig{
			MaxRetries:      s.MaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}

	var p weather.Provider
	switch s.Name {
	case NameOpenWeather, "":
		p = NewOpenWeatherProvider(httpCfg, s.APIKey, s.BaseURL)
	case NameWeatherAPI:
		p = NewWeatherAPIProvider(httpCfg, s.APIKey, s.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, s.Name)
	}

	return NewRateLimitedProvider(p, s.RateLimit, s.RateBurst), nil
}
