package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTPConfig() HTTPClientConfig {
	return HTTPClientConfig{Client: &http.Client{Timeout: 2 * time.Second}}
}

func TestOpenWeatherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Paris", q.Get("q"))
		assert.Equal(t, "secret", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weather":[{"main":"Clouds"},{"main":"Mist"}],"main":{"temp":-3.5}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testHTTPConfig(), "secret", srv.URL)
	obs, err := p.Fetch(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Clouds", obs.Condition)
	assert.Equal(t, -3.5, obs.TemperatureC)
	assert.Equal(t, "openweathermap", obs.ProviderName)
}

func TestOpenWeatherFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"cod":"404"}`, wantErr: ErrUnexpected},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantErr: ErrUnexpected},
		{name: "server error", status: http.StatusBadGateway, body: ``, wantErr: ErrServerError},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, wantErr: ErrRateLimited},
		{name: "invalid json", status: http.StatusOK, body: `{"weather":`, wantErr: ErrMalformed},
		{name: "empty weather", status: http.StatusOK, body: `{"weather":[],"main":{"temp":1}}`, wantErr: ErrMalformed},
		{name: "missing temp", status: http.StatusOK, body: `{"weather":[{"main":"Rain"}],"main":{}}`, wantErr: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenWeatherProvider(testHTTPConfig(), "secret", srv.URL)
			_, err := p.Fetch(context.Background(), "Paris")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpenWeatherRequiresAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(testHTTPConfig(), "", "http://127.0.0.1:1")
	_, err := p.Fetch(context.Background(), "Paris")
	assert.ErrorIs(t, err, errMissingAPIKey)
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testHTTPConfig(), "secret", srv.URL)
	_, err := p.Fetch(context.Background(), "Paris")
	require.ErrorIs(t, err, ErrServerError)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"weather":[{"main":"Clear"}],"main":{"temp":21}}`))
	}))
	defer srv.Close()

	cfg := testHTTPConfig()
	cfg.Backoff = BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	p := NewOpenWeatherProvider(cfg, "secret", srv.URL)

	obs, err := p.Fetch(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Clear", obs.Condition)
	assert.EqualValues(t, 3, calls.Load())
}

func TestWeatherAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lyon", r.URL.Query().Get("q"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"current":{"temp_c":17.2,"condition":{"text":"Partly cloudy"}}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(testHTTPConfig(), "k", srv.URL)
	obs, err := p.Fetch(context.Background(), "Lyon")
	require.NoError(t, err)
	assert.Equal(t, "Partly cloudy", obs.Condition)
	assert.Equal(t, 17.2, obs.TemperatureC)
}

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(Settings{Name: NameWeatherAPI, APIKey: "k", HTTP: testHTTPConfig()})
	require.NoError(t, err)
	assert.Equal(t, "weatherapi", p.Name())

	p, err = New(Settings{APIKey: "k", HTTP: testHTTPConfig()})
	require.NoError(t, err)
	assert.Equal(t, "openweathermap", p.Name())

	_, err = New(Settings{Name: "accuweather"})
	assert.ErrorIs(t, err, errUnknownProvider)
}

func TestRateLimitedProviderHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"weather":[{"main":"Clear"}],"main":{"temp":1}}`))
	}))
	defer srv.Close()

	p := NewRateLimitedProvider(NewOpenWeatherProvider(testHTTPConfig(), "secret", srv.URL), 0.001, 1)

	_, err := p.Fetch(context.Background(), "Paris")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Fetch(ctx, "Paris")
	assert.Error(t, err)
}

func TestUnknownCityDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Paris" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"weather":[{"main":"Clear"}],"main":{"temp":18}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testHTTPConfig(), "secret", srv.URL)
	for i := 0; i < 10; i++ {
		_, err := p.Fetch(context.Background(), "Pariss")
		require.ErrorIs(t, err, ErrUnexpected)
	}

	obs, err := p.Fetch(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, 18.0, obs.TemperatureC)
}

func TestServerErrorsTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testHTTPConfig(), "secret", srv.URL)
	for i := 0; i < 6; i++ {
		_, err := p.Fetch(context.Background(), "Paris")
		require.ErrorIs(t, err, ErrServerError)
	}

	_, err := p.Fetch(context.Background(), "Paris")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.EqualValues(t, 6, calls.Load())
}
