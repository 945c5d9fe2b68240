package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/contentgraph/api/internal/infra/http/handler"
	"github.com/contentgraph/api/internal/infra/http/middleware"
)

// Handlers groups the handlers routes are built from.
type Handlers struct {
	Health       *handler.HealthHandler
	Relation     *handler.RelationHandler
	RelationType *handler.RelationTypeHandler
	Content      *handler.ContentHandler
	Integrity    *handler.IntegrityHandler
}

// RegisterRoutes wires all routes onto the router. Probes and metrics stay
// public; the API surface requires authentication for writes, and the
// integrity surface is admin-only.
func RegisterRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health.Live)
	r.Get("/readyz", h.Health.Ready)
	r.Method("GET", "/metrics", MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		// Relation types: reads are public, registration is admin-only.
		r.Get("/relation-types", h.RelationType.List)
		r.Get("/relation-types/{slug}", h.RelationType.Get)
		r.With(middleware.RequireRole("admin")).
			Post("/relation-types", h.RelationType.Register)

		// Relations.
		r.With(middleware.RequireActor()).Post("/relations", h.Relation.Create)
		r.With(middleware.RequireActor()).Delete("/relations", h.Relation.Delete)
		r.Get("/relations/check", h.Relation.Check)
		r.With(middleware.RequireActor()).Put("/relations/{id}/order", h.Relation.SetOrder)

		// Content.
		r.Get("/content", h.Content.List)
		r.Get("/content/{id}", h.Content.Get)
		r.Get("/content/{id}/related", h.Relation.ListRelated)
		r.Get("/content/{id}/relations", h.Relation.ListAll)
		r.With(middleware.RequireActor()).Post("/content", h.Content.Create)
		r.With(middleware.RequireActor()).Delete("/content/{id}", h.Content.Delete)

		// Integrity and transfer, admin-only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Post("/integrity/scan", h.Integrity.Scan)
			r.Get("/integrity/status", h.Integrity.Status)
			r.Get("/integrity/notice", h.Integrity.Notice)
			r.Delete("/integrity/notice", h.Integrity.DismissNotice)
			r.Get("/relations/export", h.Integrity.Export)
			r.Post("/relations/import", h.Integrity.Import)
		})
	})
}
