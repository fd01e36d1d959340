package git

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/cgraph-go/internal/debounce"
)

const reloadDebounceDelay = 350 * time.Millisecond

type watchState struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
}

// Watch reloads the commit-graph file whenever git rewrites it. onReload,
// if set, is called after every reload attempt with its result.
func (s *Service) Watch(onReload func(error)) error {
	s.watch.mu.Lock()
	defer s.watch.mu.Unlock()
	if s.watch.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	dir := filepath.Dir(s.repo.graphPath)
	slog.Debug("adding path to FS watcher", slog.String("path", dir))
	if err := watcher.Add(dir); err != nil {
		err := errors.Join(err, watcher.Close())
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	d := debounce.Ensure(&s.watch.debounce, reloadDebounceDelay, func() {
		err := s.Reload()
		if err != nil {
			slog.Error("commit-graph reload", slog.Any("error", err))
		}
		if onReload != nil {
			onReload(err)
		}
	})
	s.watch.watcher = watcher
	go s.watchLoop(watcher, d)
	return nil
}

func (s *Service) watchLoop(w *fsnotify.Watcher, d *debounce.Debouncer) {
	base := filepath.Base(s.repo.graphPath)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isGraphEvent(ev.Name, base) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			d.Trigger()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// isGraphEvent ignores the lock and temporary files git writes before
// renaming the new file into place.
func isGraphEvent(name, base string) bool {
	name = filepath.Base(name)
	if strings.HasSuffix(name, ".lock") {
		return false
	}
	return name == base
}

func (s *Service) stopWatch() error {
	s.watch.mu.Lock()
	defer s.watch.mu.Unlock()
	if s.watch.debounce != nil {
		s.watch.debounce.Stop()
		s.watch.debounce = nil
	}
	if s.watch.watcher == nil {
		return nil
	}
	err := s.watch.watcher.Close()
	s.watch.watcher = nil
	return err
}
