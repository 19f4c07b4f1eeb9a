package poller

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/starford/postdeck/internal/models"
	"github.com/starford/postdeck/internal/postclient"
	"github.com/starford/postdeck/internal/testutil"
)

type recorder struct {
	mu   sync.Mutex
	sums []string
}

func (r *recorder) PublishChanged(fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sums = append(r.sums, fingerprint)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sums)
}

func TestCheckPublishesOnlyOnChange(t *testing.T) {
	api := testutil.NewFakeAPI(t, models.Post{ID: 1, Title: "a"})
	rec := &recorder{}
	p := New(context.Background(), "@every 1h", postclient.New(), api.URL, rec, testutil.Logger())

	p.Check() // baseline
	p.Check()
	if rec.count() != 0 {
		t.Fatalf("published %d times without a change", rec.count())
	}

	api.SetPosts(models.Post{ID: 1, Title: "a"}, models.Post{ID: 2, Title: "b"})
	p.Check()
	if rec.count() != 1 {
		t.Fatalf("published %d times, want 1", rec.count())
	}
}

func TestCheckBaseURLChangeResetsBaseline(t *testing.T) {
	one := testutil.NewFakeAPI(t, models.Post{ID: 1, Title: "a"})
	two := testutil.NewFakeAPI(t, models.Post{ID: 9, Title: "z"})
	base := one.URL()
	rec := &recorder{}
	p := New(context.Background(), "@every 1h", postclient.New(), func() string { return base }, rec, testutil.Logger())

	p.Check()
	base = two.URL()
	p.Check()
	if rec.count() != 0 {
		t.Errorf("switching APIs must not count as a change")
	}
}

func TestCheckSkipsOnFailureAndEmptyBase(t *testing.T) {
	api := testutil.NewFakeAPI(t, models.Post{ID: 1})
	rec := &recorder{}
	p := New(context.Background(), "@every 1h", postclient.New(), func() string { return "" }, rec, testutil.Logger())
	p.Check()
	if len(api.Calls()) != 0 {
		t.Errorf("calls with empty base URL: %v", api.Calls())
	}

	p = New(context.Background(), "@every 1h", postclient.New(), api.URL, rec, testutil.Logger())
	p.Check()
	api.Fail(http.StatusInternalServerError)
	p.Check()
	if rec.count() != 0 {
		t.Errorf("failure published a change")
	}
}

func TestStartRunsSchedule(t *testing.T) {
	api := testutil.NewFakeAPI(t, models.Post{ID: 1})
	p := New(context.Background(), "@every 1s", postclient.New(), api.URL, &recorder{}, testutil.Logger())
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if api.Count("GET /posts") > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("scheduled check never ran")
}

func TestStartRejectsBadSpec(t *testing.T) {
	p := New(context.Background(), "not a spec", postclient.New(), func() string { return "" }, &recorder{}, testutil.Logger())
	if err := p.Start(); err == nil {
		t.Error("expected error for invalid spec")
	}
}
