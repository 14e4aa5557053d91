package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	glosashttp "github.com/cartera-salud/glosas/internal/glosas/http"
	"github.com/cartera-salud/glosas/internal/observability"
	"github.com/cartera-salud/glosas/internal/platform/httpx"
	"github.com/cartera-salud/glosas/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	ReportHandler *glosashttp.Handler
	Metrics       *observability.Metrics
	JobsHandler   *jobs.Handler
	Health        func(r *http.Request) error
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Health != nil {
			if err := params.Health(r); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	params.ReportHandler.MountRoutes(r)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Recurso no encontrado.", "")
	})
	return r
}
