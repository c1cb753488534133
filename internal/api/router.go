package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/munin/internal/eventservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /stream inside the auth group.
func NewRouter(svc *eventservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Events.
	r.Post("/events", h.RecordEvent)
	r.Get("/events", h.ListEvents)
	r.Get("/events/search", h.Search)

	// Journal summary.
	r.Get("/summary", h.Summary)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/stream", sseHandler.ServeHTTP)
	}

	return r
}
