package web

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

// WatchTemplates reloads r whenever an .html file in its template
// directory changes, until ctx is cancelled. Bursts of events (editors
// often write a file several times) are collapsed into one reload.
// onReload, if non-nil, runs after every successful reload. Embedded
// templates are never watched.
func WatchTemplates(ctx context.Context, r *Renderer, logger *slog.Logger, onReload func()) error {
	if r.Dir() == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(r.Dir()); err != nil {
		return err
	}
	logger.Info("templates: watching", slog.String("dir", r.Dir()))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("templates: watcher stopped")
			return nil

		case <-timerCh:
			if err := r.Reload(); err != nil {
				logger.Warn("templates: reload failed, keeping previous set", slog.String("error", err.Error()))
				continue
			}
			logger.Info("templates: reloaded")
			if onReload != nil {
				onReload()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".html" {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("templates: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
