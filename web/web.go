// Package web assembles the HTTP surface generated from the model
// document. Every registered model gets a CRUD router under its prefix,
// plus the custom action routes its surfaces declare.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pnpstats/adminapi/adapters/metrics"
	"github.com/pnpstats/adminapi/core/actions"
	"github.com/pnpstats/adminapi/core/openapi"
	"github.com/pnpstats/adminapi/core/registry"
	"github.com/pnpstats/adminapi/core/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// API handles the generated model endpoints.
type API struct {
	reg     *registry.Registry
	store   storage.Store
	actions *actions.Registry
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewAPI creates the handler set for the registered models.
func NewAPI(reg *registry.Registry, store storage.Store, acts *actions.Registry, logger zerolog.Logger) *API {
	return &API{
		reg:     reg,
		store:   store,
		actions: acts,
		logger:  logger,
	}
}

// SetMetrics attaches a metrics collector for action counters.
func (a *API) SetMetrics(m *metrics.Collector) {
	a.metrics = m
}

// RouterConfig controls optional router features.
type RouterConfig struct {
	Metrics       *metrics.Collector
	MetricsPath   string
	EnableOpenAPI bool
}

// NewRouter creates the main HTTP router. Model routes are derived from
// the registry at build time; rebuild the router after a document reload.
func NewRouter(api *API, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", Health)
	r.Get("/health/live", Health)

	// Metrics endpoint
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	// OpenAPI/Swagger endpoints
	if cfg.EnableOpenAPI {
		r.Get("/openapi.json", api.OpenAPISpec)
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/openapi.json"),
		))
	}

	// Version endpoint
	r.Get("/version", VersionHandler)

	// Model routes
	for _, entry := range api.reg.List() {
		api.mountModel(r, entry)
	}

	return r
}

// mountModel registers the CRUD and action routes of a single model.
func (a *API) mountModel(r chi.Router, entry registry.Entry) {
	key := entry.Key
	model := entry.Model

	r.Route("/"+entry.Prefix(), func(r chi.Router) {
		r.Get("/", a.handleList(key))
		r.Post("/", a.handleCreate(key))
		r.Get("/inativos", a.handleInactive(key))

		for _, name := range model.List.ActionNames() {
			handlerID := model.List.Actions[name]
			r.Get("/"+name, a.handleActionTemplate(handlerID))
			r.Post("/"+name, a.handleAction(key, name, handlerID, false))
		}

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleRetrieve(key))
			r.Put("/", a.handleUpdate(key, true))
			r.Patch("/", a.handleUpdate(key, false))
			r.Delete("/", a.handleDelete(key))

			for _, name := range model.View.ActionNames() {
				handlerID := model.View.Actions[name]
				r.Get("/"+name, a.handleActionTemplate(handlerID))
				r.Post("/"+name, a.handleAction(key, name, handlerID, true))
			}
		})
	})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// VersionHandler reports the build version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"version": Version})
}

// OpenAPISpec serves the generated OpenAPI document.
func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	gen := openapi.NewGenerator(a.reg)
	data, err := gen.Generate().ToJSON()
	if err != nil {
		a.logger.Error().Err(err).Msg("openapi generation failed")
		writeError(w, http.StatusInternalServerError, "failed to generate specification")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
