package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"

	"mvdan.cc/xurls/v2"

	"github.com/starford/postdeck/internal/models"
	"github.com/starford/postdeck/internal/postview"
)

//go:embed templates/*.html
var templatesFS embed.FS

var linkRe = mustLinkPattern()

func mustLinkPattern() *regexp.Regexp {
	re, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		panic(fmt.Sprintf("web: compile link pattern: %v", err))
	}
	return re
}

var functions = template.FuncMap{
	"linkify": linkify,
}

// linkify escapes s and turns every http(s) URL in it into a link.
func linkify(s string) template.HTML {
	var b strings.Builder
	last := 0
	for _, m := range linkRe.FindAllStringIndex(s, -1) {
		b.WriteString(template.HTMLEscapeString(s[last:m[0]]))
		u := template.HTMLEscapeString(s[m[0]:m[1]])
		b.WriteString(`<a href="` + u + `" rel="nofollow noopener">` + u + `</a>`)
		last = m[1]
	}
	b.WriteString(template.HTMLEscapeString(s[last:]))
	return template.HTML(b.String())
}

// page is the data every template executes against.
type page struct {
	postview.Screen
	Title  string
	Fields []models.Field
}

var titles = map[postview.Kind]string{
	postview.KindList:   "Posts",
	postview.KindEdit:   "Edit Post",
	postview.KindDelete: "Delete Post",
	postview.KindSearch: "Search Posts",
}

// Renderer maps a Screen to HTML. Templates come from the binary unless a
// directory is given, in which case they can be reloaded at runtime.
type Renderer struct {
	dir string

	mu   sync.RWMutex
	tmpl *template.Template
}

// NewRenderer parses the templates in dir, or the embedded ones when dir is empty.
func NewRenderer(dir string) (*Renderer, error) {
	r := &Renderer{dir: dir}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the template directory, or "" for embedded templates.
func (r *Renderer) Dir() string {
	return r.dir
}

// Reload re-parses the templates. On error the previous set stays active.
func (r *Renderer) Reload() error {
	var src fs.FS = templatesFS
	pattern := "templates/*.html"
	if r.dir != "" {
		src = os.DirFS(r.dir)
		pattern = "*.html"
	}

	tmpl, err := template.New("").Funcs(functions).ParseFS(src, pattern)
	if err != nil {
		return fmt.Errorf("web: parse templates: %w", err)
	}
	if tmpl.Lookup("page") == nil {
		return fmt.Errorf("web: templates define no %q", "page")
	}

	r.mu.Lock()
	r.tmpl = tmpl
	r.mu.Unlock()
	return nil
}

// Render writes the page for s to w. Output is buffered so that a
// template error never leaves a half-written page.
func (r *Renderer) Render(w io.Writer, s postview.Screen) error {
	r.mu.RLock()
	tmpl := r.tmpl
	r.mu.RUnlock()

	data := page{
		Screen: s,
		Title:  titles[s.Kind],
		Fields: models.Fields,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return fmt.Errorf("web: render %s: %w", s.Kind, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
