// Package api assembles the playerd control API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hszk-dev/loopvideo/internal/api/handler"
	"github.com/hszk-dev/loopvideo/internal/api/middleware"
)

// Handlers groups the handlers mounted by NewRouter. Metrics may be nil.
type Handlers struct {
	Health    *handler.HealthHandler
	Players   *handler.PlayersHandler
	Surfaces  *handler.SurfacesHandler
	Lifecycle *handler.LifecycleHandler
	Metrics   http.Handler
}

// NewRouter builds the control API router.
func NewRouter(logger *slog.Logger, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.Players.List)
			r.Delete("/", h.Players.DeleteAll)
			r.Post("/preload", h.Players.Preload)
			r.Put("/{key}", h.Players.Put)
			r.Delete("/{key}", h.Players.Delete)
		})

		r.Route("/surfaces", func(r chi.Router) {
			r.Get("/", h.Surfaces.List)
			r.Post("/", h.Surfaces.Create)
			r.Delete("/{id}", h.Surfaces.Remove)
			r.Put("/{id}/player/{key}", h.Surfaces.Attach)
			r.Delete("/{id}/player", h.Surfaces.Detach)
		})

		r.Get("/lifecycle", h.Lifecycle.Get)
		r.Post("/lifecycle/{signal}", h.Lifecycle.Signal)
	})

	return r
}
