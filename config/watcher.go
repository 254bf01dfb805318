package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultSettle is how long a file must stay quiet before its change is
// reported. Editors often write a file in several steps.
const DefaultSettle = 100 * time.Millisecond

// Watcher reports changes to a set of files.
type Watcher struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	dirs     map[string]struct{}
	pending  map[string]*time.Timer
	settle   time.Duration
	onChange func(path string)
	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  bool
}

// NewWatcher creates a watcher calling onChange with the absolute path of
// every changed file. onChange runs on its own goroutine.
func NewWatcher(logger zerolog.Logger, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		logger:   logger,
		watcher:  fw,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		pending:  make(map[string]*time.Timer),
		settle:   DefaultSettle,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}

	go w.watchLoop()

	return w, nil
}

// SetSettle changes the quiet period. Zero reports every event at once.
func (w *Watcher) SetSettle(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settle = d
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Watch the directory so atomic saves (rename over the file) are seen.
	dir := filepath.Dir(abs)
	if _, ok := w.dirs[dir]; !ok {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		w.dirs[dir] = struct{}{}
	}
	w.files[abs] = struct{}{}

	w.logger.Info().Str("path", abs).Msg("watching file for changes")
	return nil
}

// Stop stops watching. Pending notifications are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		for _, t := range w.pending {
			t.Stop()
		}
		w.mu.Unlock()

		close(w.stopCh)
		w.watcher.Close()
	})
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			w.mu.Lock()
			_, watched := w.files[name]
			w.mu.Unlock()
			if !watched {
				continue
			}

			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", name).
				Msg("file changed")

			w.schedule(name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	stopped := w.stopped
	w.mu.Unlock()

	if stopped {
		return
	}
	w.onChange(path)
}
