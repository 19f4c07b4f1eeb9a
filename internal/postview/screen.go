package postview

import (
	"net/url"

	"github.com/starford/postdeck/internal/models"
)

// ListPath is the canonical posts listing page.
const ListPath = "/posts"

// Kind names a view state.
type Kind string

// View states.
const (
	KindList   Kind = "list"
	KindEdit   Kind = "edit"
	KindDelete Kind = "delete"
	KindSearch Kind = "search"
)

// Screen is the complete state a page is rendered from.
type Screen struct {
	Kind    Kind
	BaseURL string
	// Posts holds the list or search blocks, in render order.
	Posts []models.Post
	// Post is the subject of the edit and delete screens.
	Post      *models.Post
	Query     ListQuery
	Search    SearchQuery
	SortLinks []SortLink
	// Stale is set when the screen is a replay of the last good render
	// after a failed operation.
	Stale      bool
	Generation uint64
}

// ListQuery carries the page path and the sort parameters of its query string.
type ListQuery struct {
	Path      string
	Sort      models.Field
	Direction models.Direction
}

// HasSort reports whether both sort parameters are present.
func (q ListQuery) HasSort() bool {
	return q.Sort != "" && q.Direction != ""
}

// Values returns the sort parameters as a query string, or "" when absent.
func (q ListQuery) Values() string {
	if !q.HasSort() {
		return ""
	}
	return "sort=" + url.QueryEscape(string(q.Sort)) + "&direction=" + url.QueryEscape(string(q.Direction))
}

// SearchQuery is a single-field search.
type SearchQuery struct {
	Field models.Field
	Query string
}

// SortLink is one "Field: Asc, Desc" group of the sort bar.
type SortLink struct {
	Label string
	Asc   string
	Desc  string
}

var sortLabels = map[models.Field]string{
	models.FieldTitle:   "Title",
	models.FieldContent: "Content",
	models.FieldAuthor:  "Author",
	models.FieldDate:    "Date",
}

func sortLinks() []SortLink {
	links := make([]SortLink, 0, len(models.Fields))
	for _, f := range models.Fields {
		links = append(links, SortLink{
			Label: sortLabels[f],
			Asc:   "?" + ListQuery{Sort: f, Direction: models.Asc}.Values(),
			Desc:  "?" + ListQuery{Sort: f, Direction: models.Desc}.Values(),
		})
	}
	return links
}
