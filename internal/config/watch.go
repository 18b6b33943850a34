package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the reloaded preset, or the load error, every time
// the file at path is written or replaced. The parent directory is
// watched so editors that save by rename are seen too. Watch blocks until
// ctx is done and returns ctx.Err().
func Watch(ctx context.Context, path string, fn func(*Preset, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return ctx.Err()
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			fn(Load(abs))
		case err, ok := <-w.Errors:
			if !ok {
				return ctx.Err()
			}
			fn(nil, fmt.Errorf("config: watch %s: %w", path, err))
		}
	}
}
