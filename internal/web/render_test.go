package web

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/postdeck/internal/models"
	"github.com/starford/postdeck/internal/postview"
	"github.com/starford/postdeck/internal/testutil"
)

// templateDir copies the embedded templates into a temp dir.
func templateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := fs.ReadDir(templatesFS, "templates")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		data, err := templatesFS.ReadFile("templates/" + e.Name())
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func render(t *testing.T, r *Renderer, s postview.Screen) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Render(&buf, s); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestRenderKinds(t *testing.T) {
	r, err := NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	post := &models.Post{ID: 3, Title: "T", Date: "2024-01-01", Author: "A", Content: "C"}

	tests := []struct {
		screen postview.Screen
		want   string
	}{
		{postview.Screen{Kind: postview.KindList, Posts: []models.Post{*post}}, `class="post" data-id="3"`},
		{postview.Screen{Kind: postview.KindSearch, Posts: []models.Post{*post}}, `class="post" data-id="3"`},
		{postview.Screen{Kind: postview.KindEdit, Post: post}, `id="edited-title"`},
		{postview.Screen{Kind: postview.KindDelete, Post: post}, `This action cannot be undone.`},
	}
	for _, tt := range tests {
		out := render(t, r, tt.screen)
		if !strings.Contains(out, tt.want) {
			t.Errorf("%s: output missing %q", tt.screen.Kind, tt.want)
		}
		if !strings.Contains(out, `data-view="`+string(tt.screen.Kind)+`"`) {
			t.Errorf("%s: missing data-view", tt.screen.Kind)
		}
	}
}

func TestLinkify(t *testing.T) {
	got := string(linkify("a <i> http://x.example/p b"))
	want := `a &lt;i&gt; <a href="http://x.example/p" rel="nofollow noopener">http://x.example/p</a> b`
	if got != want {
		t.Errorf("linkify = %q\nwant      %q", got, want)
	}
	if got := string(linkify("javascript:alert(1)")); strings.Contains(got, "<a") {
		t.Errorf("non-http scheme linked: %q", got)
	}
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	dir := templateDir(t)
	r, err := NewRenderer(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "posts.html"), []byte(`{{define "posts"}}{{if}}{{end}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err == nil {
		t.Fatal("expected parse error")
	}

	out := render(t, r, postview.Screen{Kind: postview.KindList, Posts: []models.Post{{ID: 1}}})
	if !strings.Contains(out, `data-id="1"`) {
		t.Error("previous templates not kept after failed reload")
	}
}

func TestWatchTemplatesReloads(t *testing.T) {
	dir := templateDir(t)
	r, err := NewRenderer(dir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	go WatchTemplates(ctx, r, testutil.Logger(), func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	time.Sleep(100 * time.Millisecond)

	custom := `{{define "posts"}}{{range .Posts}}<div class="post custom" data-id="{{.ID}}"></div>{{end}}{{end}}`
	if err := os.WriteFile(filepath.Join(dir, "posts.html"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("templates not reloaded")
	}

	out := render(t, r, postview.Screen{Kind: postview.KindList, Posts: []models.Post{{ID: 1}}})
	if !strings.Contains(out, `class="post custom"`) {
		t.Error("reloaded template not used")
	}
}

func TestWatchTemplatesEmbeddedIsNoop(t *testing.T) {
	r, err := NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- WatchTemplates(context.Background(), r, testutil.Logger(), nil) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher on embedded templates should return immediately")
	}
}
