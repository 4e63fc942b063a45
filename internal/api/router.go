package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all entity routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(q Querier, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(q)

	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/entities", func(r chi.Router) {
		// Static segments win over {name} in chi's tree.
		r.Get("/list", h.ListEntities)
		r.Get("/search", h.SearchEntities)
		r.Get("/types", h.EntityTypes)

		r.Get("/{name}", h.GetEntity)
		r.Get("/{name}/relationships", h.Relationships)
		r.Get("/{name}/documents", h.Documents)
		r.Get("/{name}/full", h.Full)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
