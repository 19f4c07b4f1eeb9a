package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all page routes mounted.
// authEnabled controls whether the shared token is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Posts.
	r.Get("/", h.ListPosts)
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.AddPost)
	r.Get("/posts/{id}/edit", h.EditPost)
	r.Post("/posts/{id}/edit", h.ConfirmEdit)
	r.Get("/posts/{id}/delete", h.DeletePost)
	r.Post("/posts/{id}/delete", h.ConfirmDelete)

	// Search.
	r.Get("/search", h.SearchPosts)

	// Base URL setter.
	r.Post("/settings", h.SetBaseURL)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
