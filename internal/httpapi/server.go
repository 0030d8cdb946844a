package httpapi

import (
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"narengine/internal/engine"
	"narengine/internal/registry"
	"narengine/pkg/types"
)

// Service defines the engine methods required by the diagnostics layer.
type Service interface {
	Status() types.StatusReport
	Gatherer() prometheus.Gatherer
}

// Options configures NewMux. Zero values disable the optional routes.
type Options struct {
	// ModelsDir enables GET /models when non-empty.
	ModelsDir string
	// Validate marks each listed model file valid or not.
	Validate registry.Validator
	// Registry receives the HTTP collectors; it is served next to the
	// engine's own metrics on /metrics.
	Registry *prometheus.Registry
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Version   string `json:"version" example:"0.1.0"`
	Major     int    `json:"major" example:"0"`
	Minor     int    `json:"minor" example:"1"`
	Patch     int    `json:"patch" example:"0"`
	GoVersion string `json:"go_version" example:"go1.23.0"`
}

// GPUResponse is the body of GET /gpu.
type GPUResponse struct {
	Supported bool `json:"supported"`
	Active    bool `json:"active"`
}

// ModelsResponse is the body of GET /models.
type ModelsResponse struct {
	Models []registry.Model `json:"models"`
}

// NewMux builds the read-only diagnostics router. It never accepts
// generation requests.
func NewMux(svc Service, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	gatherers := prometheus.Gatherers{svc.Gatherer()}
	if opts.Registry != nil {
		r.Use(NewMetrics(opts.Registry).Middleware)
		gatherers = append(gatherers, opts.Registry)
	}
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc, opts: opts}
	r.Get("/status", h.status)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/version", h.version)
	r.Get("/gpu", h.gpu)
	if opts.ModelsDir != "" {
		r.Get("/models", h.models)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	MountSwagger(r)
	return r
}

type handlers struct {
	svc  Service
	opts Options
}

// status godoc
// @Summary      Engine status
// @Description  Point-in-time status report of the generation engine.
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  types.StatusReport
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// healthz godoc
// @Summary  Liveness probe
// @Tags     diagnostics
// @Produce  plain
// @Success  200  {string}  string  "ok"
// @Router   /healthz [get]
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readyz godoc
// @Summary      Readiness probe
// @Description  200 while the engine is ready or generating, 503 otherwise.
// @Tags         diagnostics
// @Produce      plain
// @Success      200  {string}  string  "ready"
// @Failure      503  {string}  string  "loading"
// @Router       /readyz [get]
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	switch st := h.svc.Status().Status; st {
	case types.StatusReady, types.StatusGenerating:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	case types.StatusInitializing:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(st.String()))
	}
}

// version godoc
// @Summary  Library version
// @Tags     diagnostics
// @Produce  json
// @Success  200  {object}  VersionResponse
// @Router   /version [get]
func (h *handlers) version(w http.ResponseWriter, r *http.Request) {
	major, minor, patch := engine.Version()
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   engine.VersionString(),
		Major:     major,
		Minor:     minor,
		Patch:     patch,
		GoVersion: runtime.Version(),
	})
}

// gpu godoc
// @Summary  GPU support
// @Tags     diagnostics
// @Produce  json
// @Success  200  {object}  GPUResponse
// @Router   /gpu [get]
func (h *handlers) gpu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GPUResponse{
		Supported: engine.GPUSupported(),
		Active:    h.svc.Status().GPUAccelerationActive,
	})
}

// models godoc
// @Summary      Model files
// @Description  Model files found in the configured directory, with validation results.
// @Tags         diagnostics
// @Produce      json
// @Success      200  {object}  ModelsResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	models, err := registry.NewScanner(h.opts.Validate).Scan(h.opts.ModelsDir)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if models == nil {
		models = []registry.Model{}
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Models: models})
}
