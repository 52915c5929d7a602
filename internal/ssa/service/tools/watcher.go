package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the registry when skill manifests change on disk. The
// controller reloads before each turn anyway; the watcher keeps listings
// such as /v1/tools fresh between turns.
type Watcher struct {
	reg      *Registry
	dir      string
	debounce time.Duration

	watcher *fsnotify.Watcher
	closeCh chan struct{}
	once    sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher starts watching dir. A missing directory yields (nil, nil) so
// callers can run without a skills directory.
func NewWatcher(reg *Registry, dir string, debounce time.Duration) (*Watcher, error) {
	if dir == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		logger.DebugX(ModuleName, "skills directory %q does not exist, not watching", abs)
		return nil, nil
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(abs); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %q: %w", abs, err)
	}

	w := &Watcher{
		reg:      reg,
		dir:      abs,
		debounce: debounce,
		watcher:  fw,
		closeCh:  make(chan struct{}),
	}
	go w.loop()
	logger.InfoX(ModuleName, "watching skills directory %s", abs)
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 && IsManifest(ev.Name) {
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.WarnX(ModuleName, "skills watcher: %v", err)
		case <-w.closeCh:
			return
		}
	}
}

// trigger schedules a reload after the debounce window, restarting the
// window on every event.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.closeCh:
			return
		default:
		}
		if err := w.reg.Reload(context.Background()); err != nil {
			logger.WarnX(ModuleName, "reload after change in %s: %v", w.dir, err)
		}
	})
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

// IsManifest reports whether name looks like a skill manifest file. Files
// starting with "_" or "." are drafts, backups or editor swap files.
func IsManifest(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
