// Package glosashttp exposes the glosas reports over HTTP.
package glosashttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/cartera-salud/glosas/internal/platform/httpx"
)

// MountRoutes registers the report endpoints under /api/reportes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "Demasiadas solicitudes, intente más tarde.", "")
		}),
	)

	r.Route("/api/reportes", func(r chi.Router) {
		r.Get("/rango-fechas", h.handleDateRange)
		r.Get("/analizar-y-comprobar", h.handleAnalyze)
		r.Get("/resumenes-paginados", h.handleSummaries)
		r.Get("/detalle-factura", h.handleDetail)
		r.Post("/buscar-facturas", h.handleLookup)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/descargar-excel", h.handleExcel)
			gr.Post("/cache/invalidar", h.handleInvalidate)
		})
	})
}
