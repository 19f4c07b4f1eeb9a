package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/postdeck/internal/apperr"
	"github.com/starford/postdeck/internal/models"
	"github.com/starford/postdeck/internal/postview"
)

const maxFormBytes = 1 << 20

// Handler holds the page handlers.
type Handler struct {
	ctrl   *postview.Controller
	render *Renderer
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *postview.Controller, render *Renderer) *Handler {
	return &Handler{ctrl: ctrl, render: render}
}

// ListPosts handles GET /posts (and GET /, which never shows sort links).
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s, err := h.ctrl.LoadPosts(r.Context(), postview.ListQuery{
		Path:      r.URL.Path,
		Sort:      models.Field(q.Get("sort")),
		Direction: models.Direction(q.Get("direction")),
	})
	h.page(w, r, s, err)
}

// AddPost handles POST /posts.
func (h *Handler) AddPost(w http.ResponseWriter, r *http.Request) {
	in, err := formInput(w, r)
	if err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	if _, err := h.ctrl.AddPost(r.Context(), in); err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	backToList(w, r)
}

// EditPost handles GET /posts/{id}/edit.
func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	s, err := h.ctrl.EditPost(r.Context(), id)
	h.page(w, r, s, err)
}

// ConfirmEdit handles POST /posts/{id}/edit.
func (h *Handler) ConfirmEdit(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	in, err := formInput(w, r)
	if err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	if _, err := h.ctrl.ConfirmEdit(r.Context(), id, in); err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	backToList(w, r)
}

// DeletePost handles GET /posts/{id}/delete.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	s, err := h.ctrl.DeletePost(r.Context(), id)
	h.page(w, r, s, err)
}

// ConfirmDelete handles POST /posts/{id}/delete.
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	if err := h.ctrl.ConfirmDelete(r.Context(), id); err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	backToList(w, r)
}

// SearchPosts handles GET /search?search-type={field}&q={query}.
func (h *Handler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := models.Field(q.Get("search-type"))
	if field == "" {
		field = models.FieldTitle
	}
	s, err := h.ctrl.SearchPosts(r.Context(), postview.SearchQuery{
		Field: field,
		Query: q.Get("q"),
	})
	h.page(w, r, s, err)
}

// SetBaseURL handles POST /settings.
func (h *Handler) SetBaseURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.page(w, r, h.ctrl.Last(), fmt.Errorf("%w: %w", apperr.ErrInvalidQuery, err))
		return
	}
	if err := h.ctrl.SetBaseURL(r.Context(), strings.TrimSpace(r.PostForm.Get("base_url"))); err != nil {
		h.page(w, r, h.ctrl.Last(), err)
		return
	}
	backToList(w, r)
}

// page renders s with a status derived from err. A failed operation
// still renders: s is then the last good screen.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, s postview.Screen, err error) {
	if errors.Is(err, context.Canceled) {
		// The client went away; nobody is reading.
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusFor(err))
	if rerr := h.render.Render(w, s); rerr != nil {
		slog.Error("render failed",
			slog.String("path", r.URL.Path),
			slog.String("error", rerr.Error()))
	}
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperr.ErrInvalidQuery), errors.Is(err, apperr.ErrNoBaseURL):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperr.ErrUnreachable), errors.Is(err, apperr.ErrDecode), errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func postID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: post id %q", apperr.ErrInvalidQuery, raw)
	}
	return id, nil
}

func formInput(w http.ResponseWriter, r *http.Request) (models.PostInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return models.PostInput{}, fmt.Errorf("%w: %w", apperr.ErrInvalidQuery, err)
	}
	return models.PostInput{
		Title:   r.PostForm.Get("title"),
		Date:    r.PostForm.Get("date"),
		Author:  r.PostForm.Get("author"),
		Content: r.PostForm.Get("content"),
	}, nil
}

// backToList re-enters the list state after a mutation.
func backToList(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, postview.ListPath, http.StatusSeeOther)
}
