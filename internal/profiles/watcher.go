package profiles

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const debounceDelay = 500 * time.Millisecond

// Watcher reloads the profiles file when it changes on disk and hands the
// result to the reload callback. Editors often replace files instead of
// writing in place, so the parent directory is watched and events are
// debounced.
type Watcher struct {
	path    string
	reload  func(*File)
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	done    chan struct{}
}

// NewWatcher creates a watcher for the profiles file at path.
func NewWatcher(path string, reload func(*File)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return &Watcher{
		path:    absPath,
		reload:  reload,
		watcher: fsWatcher,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. It is a no-op when already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.running = true
	go w.eventLoop()

	log.Info().Str("path", w.path).Msg("Profiles watcher started")
	return nil
}

// Stop stops the watcher and cancels any pending reload.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.watcher.Close()
	<-w.done

	log.Info().Msg("Profiles watcher stopped")
}

func (w *Watcher) eventLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Profiles watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, w.doReload)
}

func (w *Watcher) doReload() {
	f, err := Load(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("Failed to reload profiles; keeping previous configuration")
		return
	}
	log.Info().Int("connections", len(f.Connections)).Msg("Profiles reloaded")
	w.reload(f)
}
