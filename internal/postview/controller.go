// Package postview implements the post list view/controller: it fetches
// posts from the remote API and turns every response into a Screen that
// the web layer renders.
package postview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/postdeck/internal/apperr"
	"github.com/starford/postdeck/internal/models"
	"github.com/starford/postdeck/internal/settings"
)

// API is the posts API the controller drives.
type API interface {
	List(ctx context.Context, baseURL string) ([]models.Post, error)
	ListSorted(ctx context.Context, baseURL string, field models.Field, dir models.Direction) ([]models.Post, error)
	Get(ctx context.Context, baseURL string, id int) (*models.Post, error)
	Create(ctx context.Context, baseURL string, in models.PostInput) (*models.Post, error)
	Update(ctx context.Context, baseURL string, id int, in models.PostInput) (*models.Post, error)
	Delete(ctx context.Context, baseURL string, id int) error
	Search(ctx context.Context, baseURL string, field models.Field, query string) ([]models.Post, error)
}

// Notifier is told about every successful mutation.
// kind is one of "created", "updated", "deleted".
type Notifier interface {
	PublishPostEvent(kind string, id int)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLocale sets the collation locale used for sorting.
func WithLocale(tag language.Tag) Option {
	return func(c *Controller) {
		c.locale = tag
	}
}

// WithNotifier registers a mutation listener.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// Controller owns the base URL and the last rendered screen.
//
// Every render-producing operation draws a generation number. Only a
// screen whose generation is newer than the last committed one replaces
// the last screen, so a slow response from a superseded request can never
// overwrite a newer render.
type Controller struct {
	api      API
	store    settings.Store
	logger   *slog.Logger
	locale   language.Tag
	notifier Notifier

	mu      sync.RWMutex
	baseURL string

	gen     atomic.Uint64
	lastMu  sync.Mutex
	last    Screen
	lastGen uint64
}

// New creates a controller. Call Init before serving.
func New(api API, store settings.Store, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		store:  store,
		logger: logger,
		locale: language.English,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init loads the persisted base URL. fallback is used, without being
// persisted, when nothing has been stored yet.
func (c *Controller) Init(ctx context.Context, fallback string) error {
	v, err := c.store.Get(ctx, settings.KeyBaseURL)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		v = fallback
	case err != nil:
		return fmt.Errorf("postview: load base URL: %w", err)
	}

	c.mu.Lock()
	c.baseURL = v
	c.mu.Unlock()

	c.logger.Info("postview: base URL loaded", slog.String("base_url", v))
	return nil
}

// BaseURL returns the current posts API base URL.
func (c *Controller) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL validates, persists and applies a new base URL.
func (c *Controller) SetBaseURL(ctx context.Context, raw string) error {
	if err := ValidateBaseURL(raw); err != nil {
		return fmt.Errorf("%w: base URL: %w", apperr.ErrInvalidQuery, err)
	}
	if err := c.store.Set(ctx, settings.KeyBaseURL, raw); err != nil {
		return fmt.Errorf("postview: save base URL: %w", err)
	}

	c.mu.Lock()
	c.baseURL = raw
	c.mu.Unlock()

	c.logger.Info("postview: base URL changed", slog.String("base_url", raw))
	return nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	return validation.Validate(raw,
		validation.Required,
		is.RequestURL,
		validation.By(func(v any) error {
			u, err := url.Parse(v.(string))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return errors.New("must be an http or https URL")
			}
			return nil
		}),
	)
}

// Last returns the most recently committed screen, marked stale.
func (c *Controller) Last() Screen {
	c.lastMu.Lock()
	s := c.last
	c.lastMu.Unlock()

	if s.Kind == "" {
		s.Kind = KindList
	}
	s.BaseURL = c.BaseURL()
	s.Stale = true
	return s
}

// LoadPosts fetches every post and builds the list screen. When both sort
// parameters are present and valid the posts are ordered by a locale-aware
// comparison of the named field. Sort links are only offered on the
// canonical listing page once a sort is in effect.
func (c *Controller) LoadPosts(ctx context.Context, q ListQuery) (Screen, error) {
	gen := c.gen.Add(1)
	base := c.BaseURL()
	if base == "" {
		return c.commit(gen, Screen{Kind: KindList, Posts: []models.Post{}, Query: q}), nil
	}

	posts, err := c.api.List(ctx, base)
	if err != nil {
		return c.fail("load posts", err)
	}

	if q.HasSort() {
		if q.Sort.Valid() && q.Direction.Valid() {
			c.sortByField(posts, q.Sort, q.Direction)
		} else {
			c.logger.Warn("postview: ignoring invalid sort",
				slog.String("sort", string(q.Sort)),
				slog.String("direction", string(q.Direction)))
		}
	}

	s := Screen{Kind: KindList, BaseURL: base, Posts: posts, Query: q}
	if q.Path == ListPath && q.HasSort() {
		s.SortLinks = sortLinks()
	}
	return c.commit(gen, s), nil
}

// AddPost creates a post. Callers return to the list afterwards.
func (c *Controller) AddPost(ctx context.Context, in models.PostInput) (*models.Post, error) {
	base, err := c.requireBase()
	if err != nil {
		return nil, c.logged("add post", err)
	}
	post, err := c.api.Create(ctx, base, in)
	if err != nil {
		return nil, c.logged("add post", err)
	}
	c.logger.Info("postview: post added", slog.Int("id", post.ID))
	c.notify("created", post.ID)
	return post, nil
}

// EditPost fetches post id and builds its pre-filled edit form.
func (c *Controller) EditPost(ctx context.Context, id int) (Screen, error) {
	return c.single(ctx, "edit post", KindEdit, id)
}

// ConfirmEdit sends the edited fields with a single PUT.
func (c *Controller) ConfirmEdit(ctx context.Context, id int, in models.PostInput) (*models.Post, error) {
	base, err := c.requireBase()
	if err != nil {
		return nil, c.logged("confirm edit", err)
	}
	post, err := c.api.Update(ctx, base, id, in)
	if err != nil {
		return nil, c.logged("confirm edit", err)
	}
	c.logger.Info("postview: post updated", slog.Int("id", id))
	c.notify("updated", id)
	return post, nil
}

// DeletePost fetches post id and builds the delete confirmation.
func (c *Controller) DeletePost(ctx context.Context, id int) (Screen, error) {
	return c.single(ctx, "delete post", KindDelete, id)
}

// ConfirmDelete removes post id with a single DELETE.
func (c *Controller) ConfirmDelete(ctx context.Context, id int) error {
	base, err := c.requireBase()
	if err != nil {
		return c.logged("confirm delete", err)
	}
	if err := c.api.Delete(ctx, base, id); err != nil {
		return c.logged("confirm delete", err)
	}
	c.logger.Info("postview: post deleted", slog.Int("id", id))
	c.notify("deleted", id)
	return nil
}

// SortPosts asks the server for a sorted list and returns it ordered by
// the same comparison LoadPosts applies, so both paths agree.
func (c *Controller) SortPosts(ctx context.Context, field models.Field, dir models.Direction) ([]models.Post, error) {
	if !field.Valid() || !dir.Valid() {
		return nil, c.logged("sort posts",
			fmt.Errorf("%w: sort %q direction %q", apperr.ErrInvalidQuery, field, dir))
	}
	base, err := c.requireBase()
	if err != nil {
		return nil, c.logged("sort posts", err)
	}
	posts, err := c.api.ListSorted(ctx, base, field, dir)
	if err != nil {
		return nil, c.logged("sort posts", err)
	}
	c.sortByField(posts, field, dir)
	return posts, nil
}

// SearchPosts runs a single-field search and builds the results screen.
func (c *Controller) SearchPosts(ctx context.Context, q SearchQuery) (Screen, error) {
	gen := c.gen.Add(1)
	if !q.Field.Valid() {
		return c.fail("search posts", fmt.Errorf("%w: search type %q", apperr.ErrInvalidQuery, q.Field))
	}
	base, err := c.requireBase()
	if err != nil {
		return c.fail("search posts", err)
	}
	posts, err := c.api.Search(ctx, base, q.Field, q.Query)
	if err != nil {
		return c.fail("search posts", err)
	}
	return c.commit(gen, Screen{Kind: KindSearch, BaseURL: base, Posts: posts, Search: q}), nil
}

func (c *Controller) single(ctx context.Context, op string, kind Kind, id int) (Screen, error) {
	gen := c.gen.Add(1)
	base, err := c.requireBase()
	if err != nil {
		return c.fail(op, err)
	}
	post, err := c.api.Get(ctx, base, id)
	if err != nil {
		return c.fail(op, err)
	}
	return c.commit(gen, Screen{Kind: kind, BaseURL: base, Post: post}), nil
}

func (c *Controller) commit(gen uint64, s Screen) Screen {
	s.Generation = gen

	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	if gen > c.lastGen {
		c.last = s
		c.lastGen = gen
	} else {
		c.logger.Debug("postview: superseded render not kept",
			slog.Uint64("generation", gen),
			slog.Uint64("latest", c.lastGen))
	}
	return s
}

func (c *Controller) fail(op string, err error) (Screen, error) {
	return c.Last(), c.logged(op, err)
}

func (c *Controller) logged(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("postview: "+op+" cancelled", slog.String("error", err.Error()))
	} else {
		c.logger.Error("postview: "+op+" failed", slog.String("error", err.Error()))
	}
	return err
}

func (c *Controller) requireBase() (string, error) {
	base := c.BaseURL()
	if base == "" {
		return "", apperr.ErrNoBaseURL
	}
	return base, nil
}

func (c *Controller) notify(kind string, id int) {
	if c.notifier != nil {
		c.notifier.PublishPostEvent(kind, id)
	}
}

// sortByField orders posts in place. The collator is built per call
// because it is not safe for concurrent use.
func (c *Controller) sortByField(posts []models.Post, field models.Field, dir models.Direction) {
	col := collate.New(c.locale)
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		cmp := col.CompareString(a.Value(field), b.Value(field))
		if dir == models.Desc {
			return -cmp
		}
		return cmp
	})
}
