package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"biblio/internal/api"
	"biblio/internal/auth"
	"biblio/internal/cache"
	"biblio/internal/config"
	"biblio/internal/home"
	"biblio/internal/ingest"
	"biblio/internal/postgres"
	"biblio/internal/search"
	"biblio/internal/server/endpoints"
	"biblio/internal/store"
	"biblio/internal/svcctx"
)

// Server is the main biblio HTTP server. When the configuration asks for
// a managed database it also owns the Postgres container lifecycle,
// starting it before serving and stopping it on shutdown.
type Server struct {
	httpServer *http.Server
	pgManager  *postgres.DockerManager
	store      *store.Store
	cache      *cache.Cache
	home       *home.Dir
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the biblio home directory holding archives and container data
	Home *home.Dir
	// PostgresConfig overrides managed container settings (used by tests)
	PostgresConfig postgres.DockerConfig
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	appCfg := cfg.ConfigManager.Get()

	s := &Server{
		home:      cfg.Home,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	// A managed container only makes sense without an external database.
	if appCfg.DatabaseURL() == "" && appCfg.Database.ManageContainer {
		pgCfg := cfg.PostgresConfig
		if pgCfg.ContainerName == "" {
			pgCfg.ContainerName = appCfg.Database.ContainerName
		}
		if pgCfg.Image == "" {
			pgCfg.Image = appCfg.Database.Image
		}
		if pgCfg.HostPort == "" {
			pgCfg.HostPort = appCfg.Database.Port
		}
		if pgCfg.Password == "" {
			pgCfg.Password = config.ResolveEnvVars(appCfg.Database.Password)
		}
		pgCfg.HomePath = cfg.Home.Path()
		pgCfg.DataPath = cfg.Home.PostgresDataPath()

		pgManager, err := postgres.NewDockerManager(pgCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres manager: %w", err)
		}
		s.pgManager = pgManager
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		PostgresManager: s.pgManager,
		SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and its backends. It blocks until the context
// is cancelled or an error occurs. If a managed Postgres container
// already exists, its configuration is validated before reuse.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to prepare home directory: %w", err)
	}

	appCfg := s.configMgr.Get()

	dbURL := appCfg.DatabaseURL()
	if s.pgManager != nil {
		// Validate any existing container matches our config
		if err := s.pgManager.ValidateExisting(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("existing postgres container incompatible: %w", err)
		}

		s.logger.Info("starting postgres", "container", s.pgManager.ContainerName())
		if err := s.pgManager.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start postgres: %w", err)
		}
		dbURL = s.pgManager.URL()
	}
	if dbURL == "" {
		s.setNotRunning()
		return errors.New("no database configured: set database.url or database.manage_container")
	}

	st, err := store.Connect(ctx, dbURL, appCfg.Search.Language)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.store = st
	s.logger.Info("database is ready")

	if appCfg.Redis.Enabled {
		c, err := cache.New(ctx, cache.Config{
			URL:    appCfg.Redis.URL,
			Prefix: appCfg.Cache.Prefix,
			TTL:    time.Duration(appCfg.Cache.TTLSeconds) * time.Second,
		})
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.cache = c
		s.logger.Info("response cache enabled", "url", appCfg.Redis.URL)
	}

	var searcher search.Searcher
	switch appCfg.Search.Strategy {
	case config.StrategyLivescan:
		searcher = search.NewLivescan(s.store, s.home)
	case config.StrategyIndexed, "":
		searcher = search.NewIndexed(s.store)
	default:
		_ = s.shutdown()
		return fmt.Errorf("unknown search strategy %q", appCfg.Search.Strategy)
	}
	s.logger.Info("search configured", "strategy", appCfg.Search.Strategy, "language", appCfg.Search.Language)

	username, password := appCfg.AdminCredentials()

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Repo:     s.store,
		Cache:    s.cache,
		Searcher: searcher,
		Ingestor: ingest.New(s.store, s.home, s.cache, s.logger),
		Admin:    auth.Credentials{Username: username, Password: password},
		Config:   s.configMgr,
		Logger:   s.logger,
		Home:     s.home,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and backends.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Cached responses do not survive restarts: the next process may see
	// a different library.
	if s.cache.Enabled() {
		if err := s.cache.Flush(shutdownCtx); err != nil {
			s.logger.Error("cache flush error", "error", err)
		}
		if err := s.cache.Close(); err != nil {
			s.logger.Error("cache close error", "error", err)
		}
		s.cache = nil
	}

	if s.store != nil {
		s.store.Close()
		s.store = nil
	}

	if s.pgManager != nil {
		s.logger.Info("stopping postgres")
		if err := s.pgManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("postgres stop error", "error", err)
		}
		if err := s.pgManager.Close(); err != nil {
			s.logger.Error("postgres manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Store returns the connected store.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() *store.Store {
	return s.store
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the database connection is up.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
