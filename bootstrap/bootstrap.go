// Package bootstrap wires all dependencies and starts the application.
// The model document drives the routes; on reload the registry and the
// router are rebuilt and swapped atomically.
package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pnpstats/adminapi/adapters/memory"
	"github.com/pnpstats/adminapi/adapters/metrics"
	"github.com/pnpstats/adminapi/config"
	"github.com/pnpstats/adminapi/core/actions"
	"github.com/pnpstats/adminapi/core/registry"
	"github.com/pnpstats/adminapi/core/schema"
	"github.com/pnpstats/adminapi/core/storage"
	"github.com/pnpstats/adminapi/web"
)

// Options overrides parts of the loaded configuration.
type Options struct {
	// ConfigPath points at the application config file. Empty falls
	// back to environment variables.
	ConfigPath string

	// SpecPath overrides the model document path.
	SpecPath string

	// HotReload forces document watching on.
	HotReload bool
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Spec       *config.SpecHolder
	Store      storage.Store
	Actions    *actions.Registry
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	router *routerSwapper
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.SpecPath != "" {
		cfg.Spec.Path = opts.SpecPath
	}
	if opts.HotReload {
		cfg.Spec.HotReload = true
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Str("spec", cfg.Spec.Path).Msg("initializing pnpadmin")

	a := &App{
		Logger:  logger,
		Config:  cfg,
		Actions: actions.Builtin(),
		router:  &routerSwapper{},
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initStore(); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	holder, err := config.NewSpecHolder(cfg.Spec.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load model document: %w", err)
	}
	a.Spec = holder

	if err := a.applyDocument(holder.Get()); err != nil {
		return nil, fmt.Errorf("apply model document: %w", err)
	}

	holder.OnChange(func(doc *schema.Document) {
		if err := a.applyDocument(doc); err != nil {
			logger.Error().Err(err).Msg("document reload rejected, keeping old routes")
			if a.Metrics != nil {
				a.Metrics.SpecReloadErrors.Inc()
			}
			return
		}
		if a.Metrics != nil {
			a.Metrics.SpecReloads.Inc()
		}
	})

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

func (a *App) initStore() error {
	switch a.Config.Database.Driver {
	case "sqlite":
		store, err := storage.NewSQLiteStore(a.Config.Database.DSN)
		if err != nil {
			return err
		}
		a.Store = store
		a.Logger.Info().Str("dsn", a.Config.Database.DSN).Msg("using sqlite store")
	default:
		a.Store = memory.NewStore()
		a.Logger.Info().Msg("using in-memory store")
	}
	return nil
}

// applyDocument rebuilds the registry and router from a parsed document
// and swaps them in. The old router keeps serving until the swap.
func (a *App) applyDocument(doc *schema.Document) error {
	reg, err := registry.FromDocument(*doc)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, entry := range reg.List() {
		if err := a.Store.EnsureModel(ctx, entry.Key); err != nil {
			return fmt.Errorf("prepare model %s: %w", entry.Key, err)
		}
	}

	api := web.NewAPI(reg, a.Store, a.Actions, a.Logger)
	if a.Metrics != nil {
		api.SetMetrics(a.Metrics)
	}

	router := web.NewRouter(api, a.Logger, web.RouterConfig{
		Metrics:       a.Metrics,
		MetricsPath:   a.Config.Metrics.Path,
		EnableOpenAPI: a.Config.OpenAPI.Enabled,
	})
	a.router.Swap(router)

	if a.Metrics != nil {
		a.Metrics.SpecModels.Set(float64(reg.Len()))
	}

	a.Logger.Info().Int("models", reg.Len()).Msg("routes rebuilt from model document")
	return nil
}

// Run starts the server and blocks until a signal or server error.
func (a *App) Run() error {
	if a.Config.Spec.HotReload {
		if err := a.Spec.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to watch model document")
		}
	}
	a.Spec.WatchSignals()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Spec != nil {
		a.Spec.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("store close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// Handler exposes the current router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

// routerSwapper serves the active router and allows atomic replacement.
type routerSwapper struct {
	mu      sync.RWMutex
	handler http.Handler
}

func (s *routerSwapper) Swap(h http.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *routerSwapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()

	if h == nil {
		http.Error(w, "router not ready", http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
