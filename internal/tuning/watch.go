package tuning

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes and hands each valid result to
// apply. Invalid files are logged and ignored; the previous tuning stays in
// effect. Watch blocks until ctx is done.
//
// The directory is watched rather than the file so editors that replace the
// file on save keep triggering reloads.
func Watch(ctx context.Context, path string, debounce time.Duration, log *slog.Logger, apply func(Tuning)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	want := filepath.Clean(path)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != want || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			fire = time.After(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("tuning watcher error", "error", err)
		case <-fire:
			fire = nil
			t, err := Load(path)
			if err != nil {
				log.Warn("tuning reload rejected", "path", path, "error", err)
				continue
			}
			log.Info("tuning reloaded", "path", path)
			apply(t)
		}
	}
}
