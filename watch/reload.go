package watch

import (
	"io/fs"
	"log"
	"path/filepath"
	"sync"

	"github.com/ghashy/tiledkit/scene"
	"github.com/ghashy/tiledkit/tiled"
)

// Reloader reparses changed map documents and swaps their live instances.
// Loads are atomic: a document that no longer parses, or that trips a fatal
// compile error, leaves the previous instance untouched.
type Reloader struct {
	root string
	fsys fs.FS
	orch *scene.Orchestrator

	mu   sync.Mutex
	keys map[string]string // slash-relative map path -> instance key
}

// NewReloader creates a reloader. root is the directory fsys was opened
// from; watcher paths are resolved against it.
func NewReloader(root string, fsys fs.FS, orch *scene.Orchestrator) *Reloader {
	return &Reloader{
		root: root,
		fsys: fsys,
		orch: orch,
		keys: make(map[string]string),
	}
}

// Track ties a map document (slash-relative to root) to an instance key.
// Subsequent changes to that document reload the key.
func (r *Reloader) Track(relPath, key string) {
	r.mu.Lock()
	r.keys[relPath] = key
	r.mu.Unlock()
}

// Load parses and spawns a tracked document immediately.
func (r *Reloader) Load(relPath string) (*scene.Report, error) {
	r.mu.Lock()
	key, ok := r.keys[relPath]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	m, err := tiled.ParseFile(r.fsys, relPath)
	if err != nil {
		return nil, err
	}
	_, report, err := r.orch.Load(key, m)
	return report, err
}

// HandleChange reloads whatever the changed path affects. A changed map
// reloads that map; a changed tileset reloads every tracked map, since the
// parser resolves external tilesets at parse time.
func (r *Reloader) HandleChange(path string) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	if IsTilesetFile(rel) {
		r.mu.Lock()
		tracked := make([]string, 0, len(r.keys))
		for p := range r.keys {
			tracked = append(tracked, p)
		}
		r.mu.Unlock()
		for _, p := range tracked {
			r.reload(p)
		}
		return
	}
	r.reload(rel)
}

func (r *Reloader) reload(relPath string) {
	report, err := r.Load(relPath)
	if err != nil {
		log.Printf("watch: reload %s: %v (previous instance kept)", relPath, err)
		return
	}
	if report != nil && len(report.Warnings) > 0 {
		for _, w := range report.Warnings {
			log.Printf("watch: reload %s: %s: %s", relPath, w.Kind, w.Detail)
		}
	}
}

// Run consumes watcher events until the watcher closes.
func (r *Reloader) Run(w *Watcher) {
	for {
		select {
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			r.HandleChange(path)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}
