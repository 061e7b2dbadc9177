// Package watch reloads live map instances when their source documents
// change on disk.
package watch

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce suppresses repeated events for the same path; editors
// tend to fire several writes per save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher emits the paths of changed map and tileset documents. Events for
// the same path within the debounce window are dropped.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	Events   chan string
	Errors   chan error
	closeCh  chan struct{}
	once     sync.Once
}

// NewWatcher watches the given directories. debounce <= 0 uses
// DefaultDebounce.
func NewWatcher(debounce time.Duration, dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher := &Watcher{
		watcher:  w,
		debounce: debounce,
		Events:   make(chan string, 16),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

// run owns Events and Errors so Close can never race a send on them.
func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !IsMapFile(event.Name) && !IsTilesetFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < w.debounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

// IsMapFile reports whether path looks like a Tiled map document.
func IsMapFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tmx" || ext == ".tmj" || ext == ".json"
}

// IsTilesetFile reports whether path looks like an external tileset.
func IsTilesetFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tsx" || ext == ".tsj"
}
