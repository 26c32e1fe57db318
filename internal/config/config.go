package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	// Provider selects the weather API: "openweathermap" or "weatherapi".
	Provider          string `yaml:"provider" validate:"oneof=openweathermap weatherapi"`
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	WeatherAPIKey     string `yaml:"weatherapi_api_key"`
	// BaseURL overrides the provider endpoint (empty = provider default).
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	HTTPTimeout time.Duration `yaml:"http_timeout" validate:"gt=0"`
	MaxRetries  int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RateLimit   float64       `yaml:"rate_limit" validate:"gte=0"`
	RateBurst   int           `yaml:"rate_burst" validate:"gte=1"`

	// FetchInterval controls how often the armed job re-fetches.
	FetchInterval time.Duration `yaml:"fetch_interval" validate:"gt=0"`

	// HistoryBackend is "xlsx" (file at HistoryFile) or "memory".
	HistoryBackend string `yaml:"history_backend" validate:"oneof=xlsx memory"`
	HistoryFile    string `yaml:"history_file" validate:"required_if=HistoryBackend xlsx"`

	ChartFile   string `yaml:"chart_file" validate:"required"`
	ChartWidth  int    `yaml:"chart_width" validate:"gte=200"`
	ChartHeight int    `yaml:"chart_height" validate:"gte=150"`

	Port string `yaml:"port" validate:"required,numeric"`
}

// APIKey returns the credential for the selected provider.
func (c *AppConfig) APIKey() string {
	if c.Provider == "weatherapi" {
		return c.WeatherAPIKey
	}
	return c.OpenWeatherAPIKey
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		Provider:       "openweathermap",
		HTTPTimeout:    10 * time.Second,
		RateLimit:      1,
		RateBurst:      2,
		FetchInterval:  5 * time.Minute,
		HistoryBackend: "xlsx",
		HistoryFile:    "weather_history.xlsx",
		ChartFile:      "temperature_graph.png",
		ChartWidth:     1000,
		ChartHeight:    600,
		Port:           "8080",
	}
}

var validate = validator.New()

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, then the environment (including .env), in that order.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. A missing API key is only logged, since
// the failure surfaces through the fetch status.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.APIKey() == "" {
		log.Printf("INFO: no API key configured for provider %s; fetches will fail", c.Provider)
	}
	return nil
}

// loadFile overlays the YAML file at path onto cfg. Durations are written as
// Go duration strings ("10s", "5m").
func loadFile(cfg *AppConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.Provider = getenvDefault("WEATHER_PROVIDER", cfg.Provider)
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.WeatherAPIKey = getenvDefault("WEATHERAPI_API_KEY", cfg.WeatherAPIKey)
	cfg.BaseURL = getenvDefault("WEATHER_BASE_URL", cfg.BaseURL)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", cfg.FetchInterval); err != nil {
		return err
	}

	cfg.MaxRetries = getenvInt("FETCH_MAX_RETRIES", cfg.MaxRetries)
	cfg.RateBurst = getenvInt("FETCH_RATE_BURST", cfg.RateBurst)
	if v := os.Getenv("FETCH_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid FETCH_RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = f
	}

	cfg.HistoryBackend = getenvDefault("HISTORY_BACKEND", cfg.HistoryBackend)
	cfg.HistoryFile = getenvDefault("HISTORY_FILE", cfg.HistoryFile)
	cfg.ChartFile = getenvDefault("CHART_FILE", cfg.ChartFile)
	cfg.ChartWidth = getenvInt("CHART_WIDTH", cfg.ChartWidth)
	cfg.ChartHeight = getenvInt("CHART_HEIGHT", cfg.ChartHeight)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
