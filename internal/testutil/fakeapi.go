package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/postdeck/internal/models"
)

// FakeAPI is an in-memory posts API served over httptest. It records every
// request it receives as "METHOD /path?query".
type FakeAPI struct {
	server *httptest.Server

	mu     sync.Mutex
	posts  []models.Post
	calls  []string
	failAt int // when non-zero, every request answers with this status
}

// NewFakeAPI starts a fake posts API seeded with posts. Its base URL ends in /api.
func NewFakeAPI(t *testing.T, posts ...models.Post) *FakeAPI {
	t.Helper()
	f := &FakeAPI{posts: append([]models.Post(nil), posts...)}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", f.list)
		r.Post("/posts", f.create)
		r.Get("/posts/search", f.search)
		r.Get("/posts/{id}", f.get)
		r.Put("/posts/{id}", f.update)
		r.Delete("/posts/{id}", f.delete)
	})

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API base URL.
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api"
}

// Calls returns a copy of every recorded request line.
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many recorded requests equal call exactly.
func (f *FakeAPI) Count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded requests.
func (f *FakeAPI) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Posts returns a copy of the current server-side posts.
func (f *FakeAPI) Posts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Post(nil), f.posts...)
}

// SetPosts replaces the server-side posts.
func (f *FakeAPI) SetPosts(posts ...models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append([]models.Post(nil), posts...)
}

// Fail makes every following request answer with status. Zero restores normal behaviour.
func (f *FakeAPI) Fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = status
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+strings.TrimPrefix(r.URL.RequestURI(), "/api"))
		status := f.failAt
		f.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": "forced failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) list(w http.ResponseWriter, r *http.Request) {
	posts := f.Posts()
	field := models.Field(r.URL.Query().Get("sort"))
	dir := models.Direction(r.URL.Query().Get("direction"))
	if field != "" && dir != "" {
		if !field.Valid() || !dir.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid sort."})
			return
		}
		sort.SliceStable(posts, func(i, j int) bool {
			if dir == models.Desc {
				return posts[i].Value(field) > posts[j].Value(field)
			}
			return posts[i].Value(field) < posts[j].Value(field)
		})
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (f *FakeAPI) create(w http.ResponseWriter, r *http.Request) {
	var in models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON"})
		return
	}
	f.mu.Lock()
	id := 1
	for _, p := range f.posts {
		if p.ID >= id {
			id = p.ID + 1
		}
	}
	post := models.Post{ID: id, Title: in.Title, Date: in.Date, Author: in.Author, Content: in.Content}
	f.posts = append(f.posts, post)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, post)
}

func (f *FakeAPI) search(w http.ResponseWriter, r *http.Request) {
	out := []models.Post{}
	for _, field := range models.Fields {
		if !r.URL.Query().Has(string(field)) {
			continue
		}
		needle := strings.ToLower(r.URL.Query().Get(string(field)))
		for _, p := range f.Posts() {
			if strings.Contains(strings.ToLower(p.Value(field)), needle) {
				out = append(out, p)
			}
		}
		break
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	for _, p := range f.Posts() {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Cannot get post."})
}

func (f *FakeAPI) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var in models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == id {
			f.posts[i] = models.Post{ID: id, Title: in.Title, Date: in.Date, Author: in.Author, Content: in.Content}
			writeJSON(w, http.StatusOK, f.posts[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Cannot edit post."})
}

func (f *FakeAPI) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Cannot delete post."})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
