// Package config provides configuration management for the FloodSync API service.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig      `envPrefix:"SERVER_"`
	EarthEngine EarthEngineConfig `envPrefix:"EE_"`
	Analysis    AnalysisConfig    `envPrefix:"ANALYSIS_"`
	Layers      LayersConfig      `envPrefix:"LAYERS_"`
	RateLimit   RateLimitConfig   `envPrefix:"RATE_LIMIT_"`
	Metrics     MetricsConfig     `envPrefix:"METRICS_"`
	Logging     LoggingConfig     `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"` // Public-facing URL used in links
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"180s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*"`
}

// EarthEngineConfig contains Earth Engine REST client configuration.
type EarthEngineConfig struct {
	BaseURL         string        `env:"BASE_URL" envDefault:"https://earthengine.googleapis.com"`
	Project         string        `env:"PROJECT"` // Cloud project with Earth Engine enabled (required)
	CredentialsFile string        `env:"CREDENTIALS_FILE" envDefault:""`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	VerifyOnStartup bool          `env:"VERIFY_ON_STARTUP" envDefault:"true"`

	BoundaryTable        string `env:"BOUNDARY_TABLE" envDefault:"FAO/GAUL/2015/level0"`
	BoundaryNameProperty string `env:"BOUNDARY_NAME_PROPERTY" envDefault:"ADM0_NAME"`

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit breaker. Zero disables it.
	BreakerFailures uint32        `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
}

// AnalysisConfig contains the datasets and thresholds used by the flood analyses.
type AnalysisConfig struct {
	Scale             float64 `env:"SCALE" envDefault:"30"`
	MaxPixels         float64 `env:"MAX_PIXELS" envDefault:"1e10"`
	DefaultWindowDays int     `env:"DEFAULT_WINDOW_DAYS" envDefault:"30"`

	RadarCollection     string  `env:"RADAR_COLLECTION" envDefault:"COPERNICUS/S1_GRD"`
	RadarBand           string  `env:"RADAR_BAND" envDefault:"VV"`
	RadarInstrumentMode string  `env:"RADAR_INSTRUMENT_MODE" envDefault:"IW"`
	RadarThreshold      float64 `env:"RADAR_THRESHOLD" envDefault:"-15"`

	OpticalCollection string  `env:"OPTICAL_COLLECTION" envDefault:"LANDSAT/LC08/C02/T1_L2"`
	OpticalNIRBand    string  `env:"OPTICAL_NIR_BAND" envDefault:"SR_B5"`
	OpticalGreenBand  string  `env:"OPTICAL_GREEN_BAND" envDefault:"SR_B3"`
	NDWIThreshold     float64 `env:"NDWI_THRESHOLD" envDefault:"0.3"`
	HistoricalStart   string  `env:"HISTORICAL_START" envDefault:"2019-11-01"`
	HistoricalEnd     string  `env:"HISTORICAL_END" envDefault:"2019-11-12"`

	RainfallCollection string  `env:"RAINFALL_COLLECTION" envDefault:"NASA/GPM_L3/IMERG_V06"`
	RainfallBand       string  `env:"RAINFALL_BAND" envDefault:"precipitationCal"`
	RainfallThreshold  float64 `env:"RAINFALL_THRESHOLD" envDefault:"50"`
}

// LayersConfig points at optional JSON layer definitions.
type LayersConfig struct {
	// Dir holds *.json files overriding the built-in layer metadata.
	Dir string `env:"DIR" envDefault:""`
}

// RateLimitConfig contains inbound rate limiting configuration.
type RateLimitConfig struct {
	// Requests per Window per client IP. Zero disables rate limiting.
	Requests int           `env:"REQUESTS" envDefault:"0"`
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
}

// MetricsConfig contains Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Defaults returns the configuration built from the envDefault tags alone,
// ignoring the process environment. Required fields are left empty.
func Defaults() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		Environment: map[string]string{},
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to build default configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	// Validate Earth Engine config
	if c.EarthEngine.BaseURL == "" {
		return fmt.Errorf("Earth Engine base URL is required")
	}

	if c.EarthEngine.Project == "" {
		return fmt.Errorf("Earth Engine project is required")
	}

	if c.EarthEngine.Timeout <= 0 {
		return fmt.Errorf("Earth Engine timeout must be positive, got %s", c.EarthEngine.Timeout)
	}

	if c.EarthEngine.RequestTimeout <= 0 {
		return fmt.Errorf("Earth Engine request timeout must be positive, got %s", c.EarthEngine.RequestTimeout)
	}

	if c.EarthEngine.BoundaryTable == "" || c.EarthEngine.BoundaryNameProperty == "" {
		return fmt.Errorf("boundary table and name property are required")
	}

	if c.EarthEngine.BreakerFailures > 0 && c.EarthEngine.BreakerTimeout <= 0 {
		return fmt.Errorf("breaker timeout must be positive, got %s", c.EarthEngine.BreakerTimeout)
	}

	if err := c.Analysis.Validate(); err != nil {
		return err
	}

	// Validate rate limit config
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate limit requests must not be negative, got %d", c.RateLimit.Requests)
	}

	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
	}

	if c.Metrics.Enabled && (c.Metrics.Path == "" || c.Metrics.Path[0] != '/') {
		return fmt.Errorf("metrics path must start with '/', got %q", c.Metrics.Path)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Validate checks the analysis parameters.
func (a *AnalysisConfig) Validate() error {
	if a.Scale <= 0 {
		return fmt.Errorf("analysis scale must be positive, got %g", a.Scale)
	}

	if a.MaxPixels <= 0 {
		return fmt.Errorf("analysis max pixels must be positive, got %g", a.MaxPixels)
	}

	if a.DefaultWindowDays < 1 {
		return fmt.Errorf("default window must be at least 1 day, got %d", a.DefaultWindowDays)
	}

	for name, v := range map[string]string{
		"radar collection":    a.RadarCollection,
		"radar band":          a.RadarBand,
		"optical collection":  a.OpticalCollection,
		"rainfall collection": a.RainfallCollection,
		"rainfall band":       a.RainfallBand,
	} {
		if v == "" {
			return fmt.Errorf("analysis %s is required", name)
		}
	}

	start, err := time.Parse("2006-01-02", a.HistoricalStart)
	if err != nil {
		return fmt.Errorf("invalid historical start %q: %w", a.HistoricalStart, err)
	}
	end, err := time.Parse("2006-01-02", a.HistoricalEnd)
	if err != nil {
		return fmt.Errorf("invalid historical end %q: %w", a.HistoricalEnd, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("historical start %s must be before end %s", a.HistoricalStart, a.HistoricalEnd)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
