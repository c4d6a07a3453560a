// Package server provides the HTTP server for the activity signup registry.
//
// # Endpoints
//
//   - GET /activities - All activities keyed by name
//   - GET /activities/{name} - A single activity
//   - POST /activities/{name}/signup?email= - Add a participant
//   - DELETE /activities/{name}/signup?email= - Remove a participant
//   - GET /health - Simple health check, returns "ok"
//   - GET /version - Build properties
//   - GET /metrics - Prometheus metrics
//
// # Architecture
//
// The server owns one directory.Directory, built at startup from the seed
// and injected into every handler. When a report schedule is configured a
// cron trigger runs the occupancy reporter until the server context is
// cancelled.
//
// # Example
//
//	srv, err := server.New(config.Default())
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/nomis52/signup/config"
	"github.com/nomis52/signup/directory"
	"github.com/nomis52/signup/logging"
	"github.com/nomis52/signup/metrics"
	"github.com/nomis52/signup/report"
	"github.com/nomis52/signup/seed"
	"github.com/nomis52/signup/server/cron"
	"github.com/nomis52/signup/server/handlers"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Server is the HTTP server for the signup registry.
type Server struct {
	cfg         config.Config
	logger      *logging.Logger
	activities  []directory.Activity
	directory   *directory.Directory
	registry    *metrics.ScrapeRegistry
	reporter    *report.Reporter
	cronTrigger *cron.CronTrigger
	startedAt   time.Time
	hostname    string
	httpServer  *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithActivities seeds the directory from activities instead of the
// configured seed file.
func WithActivities(activities []directory.Activity) Option {
	return func(s *Server) error {
		if err := seed.Validate(activities); err != nil {
			return fmt.Errorf("invalid activities: %w", err)
		}
		s.activities = activities
		return nil
	}
}

// New creates a new Server from cfg.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry, err := metrics.NewScrapeRegistry(cfg.Monitoring.MetricsPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	s := &Server{
		cfg:       cfg,
		registry:  registry,
		startedAt: time.Now(),
		hostname:  hostname,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.logger == nil {
		logger, err := logging.New(logging.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			Output:    cfg.Logging.Output,
			AddSource: cfg.Logging.AddSource,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		s.logger = logger
	}

	if s.activities == nil {
		activities, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		s.activities = activities
	}

	d, err := directory.New(s.activities,
		directory.WithLogger(s.logger.Logger),
		directory.WithMetrics(s.registry),
	)
	if err != nil {
		return nil, fmt.Errorf("building directory: %w", err)
	}
	s.directory = d

	if err := s.setupReporter(); err != nil {
		return nil, err
	}

	s.logger.Info("directory ready",
		"activities", len(s.directory.List()),
		"seed_file", cfg.SeedFile,
	)

	return s, nil
}

// setupReporter builds the occupancy reporter and, if a schedule is
// configured, the cron trigger that runs it.
func (s *Server) setupReporter() error {
	var reg metrics.Registry = s.registry
	if s.cfg.Monitoring.PushURL != "" {
		reg = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      s.cfg.Monitoring.PushURL,
			Prefix:   s.cfg.Monitoring.MetricsPrefix,
			Job:      s.cfg.Monitoring.JobName,
			Instance: s.hostname,
		})
	}

	reporter, err := report.New(s.directory, reg, s.logger.With("component", "report"))
	if err != nil {
		return fmt.Errorf("creating reporter: %w", err)
	}
	s.reporter = reporter

	if s.cfg.Report.Schedule == "" {
		return nil
	}
	trigger, err := cron.NewCronTrigger(s.cfg.Report.Schedule, reporter.Run, s.logger.Logger)
	if err != nil {
		return fmt.Errorf("creating report trigger: %w", err)
	}
	s.cronTrigger = trigger
	return nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// Directory returns the activity directory served by s.
func (s *Server) Directory() *directory.Directory {
	return s.directory
}

// Reporter returns the occupancy reporter.
func (s *Server) Reporter() *report.Reporter {
	return s.reporter
}

// NextReport returns the next scheduled report time, or nil if no schedule is configured.
func (s *Server) NextReport() *time.Time {
	if s.cronTrigger == nil {
		return nil
	}
	next := s.cronTrigger.NextRun()
	return &next
}

// Handler returns the server's routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return handlers.RequestLogger(s.logger.Logger, mux)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// If a report schedule is configured, the cron trigger is started too.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listener.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listener.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	if s.cronTrigger != nil {
		s.logger.Info("starting report trigger",
			"next_run", s.cronTrigger.NextRun(),
		)
		s.cronTrigger.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	log := s.logger.Logger

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /version", handlers.NewVersionHandler(s.startedAt, s.hostname))
	mux.Handle("GET /metrics", s.registry.Handler())

	mux.Handle("GET /activities", handlers.NewActivitiesHandler(s.directory))
	mux.Handle("GET /activities/{name}", handlers.NewActivityHandler(s.directory))
	mux.Handle("POST /activities/{name}/signup", handlers.NewSignupHandler(log, s.directory))
	mux.Handle("DELETE /activities/{name}/signup", handlers.NewUnregisterHandler(log, s.directory))
}
