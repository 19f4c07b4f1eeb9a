// Package poller periodically fingerprints the remote post list and
// announces changes made by other clients of the posts API.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/postdeck/internal/checksum"
	"github.com/starford/postdeck/internal/models"
)

const checkTimeout = 15 * time.Second

// Lister fetches the post list.
type Lister interface {
	List(ctx context.Context, baseURL string) ([]models.Post, error)
}

// Publisher is notified with the new fingerprint when the list changes.
type Publisher interface {
	PublishChanged(fingerprint string)
}

// Poller runs Check on a cron schedule.
type Poller struct {
	ctx     context.Context
	cron    *cron.Cron
	spec    string
	api     Lister
	baseURL func() string
	pub     Publisher
	log     *slog.Logger

	mu       sync.Mutex
	lastBase string
	lastSum  string
}

// New creates a poller. baseURL is read on every check so that a changed
// base URL is picked up without a restart.
func New(ctx context.Context, spec string, api Lister, baseURL func() string, pub Publisher, log *slog.Logger) *Poller {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &Poller{
		ctx:     ctx,
		cron:    c,
		spec:    spec,
		api:     api,
		baseURL: baseURL,
		pub:     pub,
		log:     log,
	}
}

// Start schedules the check and starts the cron runner.
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc(p.spec, p.Check); err != nil {
		return err
	}
	p.cron.Start()
	p.log.Info("poller: started", slog.String("spec", p.spec))
	return nil
}

// Stop stops scheduling and waits for a running check to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
	p.log.Info("poller: stopped")
}

// Check fetches the list once and publishes if its fingerprint differs
// from the previous check against the same base URL. The first check
// after start or after a base URL change only records a baseline.
func (p *Poller) Check() {
	base := p.baseURL()
	if base == "" {
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, checkTimeout)
	defer cancel()

	posts, err := p.api.List(ctx, base)
	if err != nil {
		p.log.Warn("poller: list failed", slog.String("error", err.Error()))
		return
	}
	sum, err := checksum.Posts(posts)
	if err != nil {
		p.log.Warn("poller: fingerprint failed", slog.String("error", err.Error()))
		return
	}

	p.mu.Lock()
	changed := p.lastBase == base && p.lastSum != "" && p.lastSum != sum
	p.lastBase = base
	p.lastSum = sum
	p.mu.Unlock()

	if changed {
		p.log.Debug("poller: remote posts changed", slog.String("fingerprint", sum))
		p.pub.PublishChanged(sum)
	}
}
