package kbfile

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ithailevi/expert/domain/core/aggregates"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher rebuilds a knowledge base whenever its file changes and hands the
// new Domain to onChange. A file that fails to load or build is logged and
// the previous Domain stays in service.
type Watcher struct {
	path     string
	opts     func() []aggregates.Option
	watcher  *fsnotify.Watcher
	onChange func(*aggregates.Domain)
	onError  func(error)
	logger   *zap.Logger
	debounce time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithDebounce overrides the delay between the last file event and the reload
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithErrorHandler is called with every failed reload
func WithErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher watches path. opts is called on every reload so each rebuilt
// Domain gets fresh options (a new random source, for one).
func NewWatcher(path string, opts func() []aggregates.Option, onChange func(*aggregates.Domain), logger *zap.Logger, options ...WatcherOption) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Editors save atomically through a rename, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch knowledge base directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		opts:     opts,
		watcher:  watcher,
		onChange: onChange,
		logger:   logger,
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}
	return w, nil
}

// Start begins watching for changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
	w.logger.Info("Knowledge base watcher started", zap.String("path", w.path))
}

// Stop stops watching and waits for the loop to exit
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.wg.Wait()
		w.logger.Info("Knowledge base watcher stopped")
	})
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	// reloads run on this goroutine, so Stop also waits for them
	var debounceTimer *time.Timer
	var reloadC <-chan time.Time
	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			reloadC = debounceTimer.C

		case <-reloadC:
			reloadC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.logger.Info("Knowledge base changed, reloading", zap.String("path", w.path))

	var opts []aggregates.Option
	if w.opts != nil {
		opts = w.opts()
	}
	d, err := LoadDomain(w.path, opts...)
	if err != nil {
		w.logger.Error("Failed to reload knowledge base, keeping current", zap.Error(err))
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.onChange(d)
	w.logger.Info("Knowledge base reloaded",
		zap.Int("concepts", len(d.Concepts())),
		zap.Int("relations", len(d.Relations())),
	)
}
