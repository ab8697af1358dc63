// Package server provides a public API for embedding the FloodSync API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	"github.com/robert-malhotra/floodsync-api/internal/analysis"
	"github.com/robert-malhotra/floodsync-api/internal/api"
	"github.com/robert-malhotra/floodsync-api/internal/backend"
	"github.com/robert-malhotra/floodsync-api/internal/catalog"
	"github.com/robert-malhotra/floodsync-api/internal/config"
	"github.com/robert-malhotra/floodsync-api/internal/earthengine"
	"github.com/robert-malhotra/floodsync-api/internal/metrics"
)

// Version is reported by the build info metric.
const Version = "1.0.0"

// Options configures an embedded FloodSync server. Zero values fall back to
// the service defaults.
type Options struct {
	// BaseURL is the public-facing URL for self-referential links.
	// Default: "http://localhost:8080"
	BaseURL string

	// Project is the Cloud project with Earth Engine enabled (required).
	Project string

	// EarthEngineURL is the Earth Engine REST API base URL.
	// Default: "https://earthengine.googleapis.com"
	EarthEngineURL string

	// TokenSource authenticates Earth Engine calls. When nil, credentials
	// are loaded from CredentialsFile or Application Default Credentials.
	TokenSource oauth2.TokenSource

	// CredentialsFile is a service account key file.
	// Default: "" (Application Default Credentials)
	CredentialsFile string

	// Timeout is the per-call HTTP timeout towards Earth Engine.
	// Default: 60s
	Timeout time.Duration

	// RequestTimeout bounds one API request end to end.
	// Default: 120s
	RequestTimeout time.Duration

	// Verify computes a trivial expression during New.
	// Default: false
	Verify bool

	// LayersDir is the path to layer override JSON files.
	// Default: "" (uses built-in layers)
	LayersDir string

	// DisableMetrics turns off instrumentation and the /metrics endpoint.
	DisableMetrics bool

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a FloodSync server that can be embedded in another application.
type Server struct {
	router chi.Router
	client *earthengine.Client
}

// New creates a new FloodSync server with the given options. When
// opts.TokenSource is nil, the loaded credentials keep ctx for token
// refreshes, so ctx must live as long as the server.
func New(ctx context.Context, opts Options) (*Server, error) {
	cfg, err := config.Defaults()
	if err != nil {
		return nil, err
	}

	cfg.EarthEngine.Project = opts.Project
	cfg.EarthEngine.CredentialsFile = opts.CredentialsFile
	cfg.EarthEngine.VerifyOnStartup = opts.Verify
	cfg.Layers.Dir = opts.LayersDir
	cfg.Metrics.Enabled = !opts.DisableMetrics
	if opts.BaseURL != "" {
		cfg.Server.BaseURL = opts.BaseURL
	}
	if opts.EarthEngineURL != "" {
		cfg.EarthEngine.BaseURL = opts.EarthEngineURL
	}
	if opts.Timeout > 0 {
		cfg.EarthEngine.Timeout = opts.Timeout
	}
	if opts.RequestTimeout > 0 {
		cfg.EarthEngine.RequestTimeout = opts.RequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	ts := opts.TokenSource
	if ts == nil {
		ts, err = earthengine.NewTokenSource(ctx, cfg.EarthEngine.CredentialsFile)
		if err != nil {
			return nil, err
		}
	}

	return NewFromConfig(ctx, cfg, ts, opts.Logger)
}

// NewFromConfig wires the Earth Engine client, the analysis pipeline and
// the HTTP router from a loaded configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, ts oauth2.TokenSource, logger *slog.Logger) (*Server, error) {
	var m *metrics.Provider
	if cfg.Metrics.Enabled {
		m = metrics.Init(Version)
	}

	breaker := earthengine.NewBreaker("earthengine", earthengine.BreakerSettings{
		ConsecutiveFailures: cfg.EarthEngine.BreakerFailures,
		OpenTimeout:         cfg.EarthEngine.BreakerTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", earthengine.StateName(from)),
				slog.String("to", earthengine.StateName(to)),
			)
			if m != nil {
				m.SetBreakerState(name, earthengine.StateName(to))
			}
		},
	})

	client := earthengine.NewClient(cfg.EarthEngine.BaseURL, cfg.EarthEngine.Project, cfg.EarthEngine.Timeout).
		WithLogger(logger).
		WithTokenSource(ts).
		WithBreaker(breaker)
	if m != nil {
		client = client.WithObserver(m.ObserveUpstream)
		if breaker != nil {
			m.SetBreakerState("earthengine", earthengine.StateName(breaker.State()))
		}
	}

	if cfg.EarthEngine.VerifyOnStartup {
		if err := client.Verify(ctx); err != nil {
			return nil, err
		}
		logger.Info("verified Earth Engine access", slog.String("project", client.Project()))
	}

	layers := config.DefaultLayers(cfg.Analysis)
	if cfg.Layers.Dir != "" {
		loaded, err := config.LoadLayers(cfg.Layers.Dir, layers)
		if err != nil {
			return nil, fmt.Errorf("failed to load layers: %w", err)
		}
		layers = loaded
	}
	logger.Info("loaded layers", slog.Int("count", layers.Count()))

	cat := catalog.New(client, cfg.EarthEngine.BoundaryTable, cfg.EarthEngine.BoundaryNameProperty).
		WithLogger(logger)
	planner := analysis.NewPlanner(cfg.Analysis, layers, client).
		WithLogger(logger)

	floodBackend := backend.NewEarthEngineBackend(client, cat, planner, cfg, logger)
	if m != nil {
		floodBackend = floodBackend.WithResultObserver(m.ObserveFloodResult)
	}

	handlers := api.NewHandlers(cfg, floodBackend, layers, logger)

	return &Server{
		router: api.NewRouter(handlers, m, logger),
		client: client,
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Client returns the Earth Engine client used by the server.
func (s *Server) Client() *earthengine.Client {
	return s.client
}
