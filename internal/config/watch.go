package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"arbcore/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// ChangeListener is called with every successfully reloaded config.
type ChangeListener func(*Config)

// Watcher reloads the config when the top-level file or any file it
// includes changes, and keeps the latest valid copy. A reload that fails to
// parse or validate is logged and the previous config stays current.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
	done chan struct{}

	mu        sync.RWMutex
	current   *Config
	files     map[string]bool
	dirs      map[string]bool
	listeners []ChangeListener
}

// Watch loads path and starts watching every file the load read.
func Watch(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg, files, err := load(abs)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	w := &Watcher{
		path:    abs,
		fsw:     fsw,
		done:    make(chan struct{}),
		current: cfg,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
	}
	if err := w.track(files); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

// track watches the directories of files, so editors that replace a file
// by rename are still seen.
func (w *Watcher) track(files []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files = make(map[string]bool, len(files))
	for _, f := range files {
		w.files[filepath.Clean(f)] = true
		dir := filepath.Dir(f)
		if w.dirs[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}

func (w *Watcher) watches(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[filepath.Clean(name)]
}

func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			if !w.watches(evt.Name) {
				continue
			}
			if err := w.reload(); err != nil {
				logger.Errorf("config reload failed (%s): %v", evt.Name, err)
				continue
			}
			w.notify()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

// Current returns the latest valid config. Callers must not modify it.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	return w.fsw.Close()
}

// reload re-reads the config and picks up includes added or removed by
// the edit.
func (w *Watcher) reload() error {
	cfg, files, err := load(w.path)
	if err != nil {
		return err
	}
	if err := w.track(files); err != nil {
		return err
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	return nil
}

func (w *Watcher) notify() {
	w.mu.RLock()
	cfg := w.current
	listeners := append([]ChangeListener(nil), w.listeners...)
	w.mu.RUnlock()
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("config listener panic: %v", r)
				}
			}()
			fn(cfg)
		}()
	}
}
