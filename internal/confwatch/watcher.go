// Package confwatch monitors the configuration file and publishes
// versioned snapshots to per-section change callbacks. It drives the
// ingress reconfiguration supervisor.
package confwatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/obgate-labs/obgate/internal/cliconfig"
	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// SectionIngress is the section name for ingress address/credential changes.
const SectionIngress = "ingress"

// defaultDebounce absorbs editor write bursts before a reload.
const defaultDebounce = 100 * time.Millisecond

// ChangeFunc receives the old and new snapshots after a section changed.
// The watcher assumes the change is acknowledged once the callback returns.
type ChangeFunc func(old, new domain.ConfigSnapshot)

// Watcher watches one TOML config file for changes.
type Watcher struct {
	path          string
	debounceDelay time.Duration
	logger        ports.Logger

	mu        sync.Mutex
	current   domain.ConfigSnapshot
	callbacks map[string][]ChangeFunc
	debounce  *time.Timer
}

// NewWatcher creates a watcher over path, starting from the initial
// snapshot already loaded at boot.
func NewWatcher(path string, initial domain.ConfigSnapshot, logger ports.Logger) *Watcher {
	return &Watcher{
		path:          path,
		debounceDelay: defaultDebounce,
		logger:        logger,
		current:       initial,
		callbacks:     make(map[string][]ChangeFunc),
	}
}

// OnChange registers a callback for a named configuration section.
func (w *Watcher) OnChange(section string, fn ChangeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks[section] = append(w.callbacks[section], fn)
}

// Current returns the latest published snapshot.
func (w *Watcher) Current() domain.ConfigSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run watches the config file until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops a
	// watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.logger.Info("config watcher started", ports.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", ports.Err(werr))
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, w.reload)
}

// reload re-reads the file and publishes a new snapshot when the ingress
// section actually changed. Snapshots are immutable once published.
func (w *Watcher) reload() {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping current snapshot",
			ports.Err(err))
		return
	}

	w.mu.Lock()
	old := w.current
	next := fc.IngressOrDefault(old.Ingress)
	if next.Equal(old.Ingress) {
		w.mu.Unlock()
		w.logger.Debug("config reloaded, ingress section unchanged")
		return
	}
	w.current = domain.ConfigSnapshot{Version: old.Version + 1, Ingress: next}
	snap := w.current
	fns := append([]ChangeFunc(nil), w.callbacks[SectionIngress]...)
	w.mu.Unlock()

	w.logger.Warn("ingress configuration changed",
		ports.String("old", old.Ingress.Addr()),
		ports.String("new", snap.Ingress.Addr()),
		ports.Uint64("version", snap.Version))

	for _, fn := range fns {
		fn(old, snap)
	}
}
