package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/i474232898/weather-history/internal/weather"
)

// RateLimitedProvider wraps a weather.Provider with a token bucket so manual
// and scheduled fetches together cannot hammer the upstream API.
type RateLimitedProvider struct {
	provider weather.Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider allows rps requests per second with the given burst.
// A non-positive rps disables limiting.
func NewRateLimitedProvider(provider weather.Provider, rps float64, burst int) *RateLimitedProvider {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Fetch waits for limiter permission or context cancellation, then forwards.
func (r *RateLimitedProvider) Fetch(ctx context.Context, city string) (weather.Observation, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return weather.Observation{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.provider.Fetch(ctx, city)
}
