// Package render hosts compiled map entities in an Ebitengine scene graph.
// World is the compiler's sink; Renderer draws the live entities.
package render

import (
	"sync"

	"github.com/ghashy/tiledkit/scene"
	"github.com/ghashy/tiledkit/tileset"
)

const entityIDBits = 32

func makeID(id, gen uint32) scene.EntityID {
	return scene.EntityID(uint64(gen)<<entityIDBits | uint64(id))
}

func idIndex(e scene.EntityID) uint32 {
	return uint32(e)
}

func idGeneration(e scene.EntityID) uint32 {
	return uint32(uint64(e) >> entityIDBits)
}

// entityStore tracks entity generations and free ids.
type entityStore struct {
	nextID uint32
	gen    []uint32
	free   []uint32
}

func (s *entityStore) create() scene.EntityID {
	var id uint32
	if len(s.free) > 0 {
		id = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
	} else {
		s.nextID++
		id = s.nextID
		if int(id) > len(s.gen) {
			s.gen = append(s.gen, 0)
		}
	}
	return makeID(id, s.gen[id-1])
}

func (s *entityStore) destroy(e scene.EntityID) {
	id := idIndex(e)
	if id == 0 || int(id) > len(s.gen) {
		return
	}
	if s.gen[id-1] != idGeneration(e) {
		return
	}
	s.gen[id-1]++
	s.free = append(s.free, id)
}

func (s *entityStore) isAlive(e scene.EntityID) bool {
	id := idIndex(e)
	if id == 0 || int(id) > len(s.gen) {
		return false
	}
	return s.gen[id-1] == idGeneration(e)
}

// sparseSet stores per-entity data keyed by the entity's id index.
type sparseSet struct {
	denseIDs    []uint32
	denseValues []any
	sparse      []int
}

func (s *sparseSet) has(id uint32) bool {
	if id == 0 || int(id)-1 >= len(s.sparse) {
		return false
	}
	idx := s.sparse[id-1]
	return idx >= 0 && idx < len(s.denseIDs) && s.denseIDs[idx] == id
}

func (s *sparseSet) get(id uint32) any {
	if !s.has(id) {
		return nil
	}
	return s.denseValues[s.sparse[id-1]]
}

func (s *sparseSet) set(id uint32, v any) {
	if id == 0 {
		return
	}
	for int(id)-1 >= len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	if s.has(id) {
		s.denseValues[s.sparse[id-1]] = v
		return
	}
	s.denseIDs = append(s.denseIDs, id)
	s.denseValues = append(s.denseValues, v)
	s.sparse[id-1] = len(s.denseIDs) - 1
}

func (s *sparseSet) remove(id uint32) {
	if !s.has(id) {
		return
	}
	idx := s.sparse[id-1]
	last := len(s.denseIDs) - 1
	lastID := s.denseIDs[last]

	s.denseIDs[idx] = s.denseIDs[last]
	s.denseValues[idx] = s.denseValues[last]
	s.sparse[lastID-1] = idx

	s.denseIDs = s.denseIDs[:last]
	s.denseValues = s.denseValues[:last]
	s.sparse[id-1] = -1
}

// node is an entity's placement in the graph.
type node struct {
	parent scene.EntityID
	t      scene.Transform
}

// World is the Ebitengine-backed scene graph the compiler spawns into.
type World struct {
	mu       sync.Mutex
	store    entityStore
	nodes    sparseSet // *node
	sprites  sparseSet // tileset.DrawableRef
	payloads sparseSet // []any
	batched  map[scene.EntityID]scene.BatchedLayer
	dirty    map[scene.EntityID]bool // batched layers needing a canvas rebuild
	cache    *ImageCache
}

// NewWorld creates an empty world. cache may be nil when the world is used
// headless (no image preflight, no drawing).
func NewWorld(cache *ImageCache) *World {
	return &World{
		batched: make(map[scene.EntityID]scene.BatchedLayer),
		dirty:   make(map[scene.EntityID]bool),
		cache:   cache,
	}
}

func (w *World) CreateEntity(parent scene.EntityID, t scene.Transform, drawable *tileset.DrawableRef) scene.EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.store.create()
	w.nodes.set(idIndex(e), &node{parent: parent, t: t})
	if drawable != nil {
		w.sprites.set(idIndex(e), *drawable)
		w.markParentDirty(parent)
	}
	return e
}

func (w *World) RemoveEntity(e scene.EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.store.isAlive(e) {
		return
	}
	if n, ok := w.nodes.get(idIndex(e)).(*node); ok {
		w.markParentDirty(n.parent)
	}
	id := idIndex(e)
	w.nodes.remove(id)
	w.sprites.remove(id)
	w.payloads.remove(id)
	delete(w.batched, e)
	delete(w.dirty, e)
	w.store.destroy(e)
}

func (w *World) InsertComponent(e scene.EntityID, payload any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.store.isAlive(e) {
		return
	}
	if bl, ok := payload.(scene.BatchedLayer); ok {
		w.batched[e] = bl
		w.dirty[e] = true
	}
	id := idIndex(e)
	existing, _ := w.payloads.get(id).([]any)
	w.payloads.set(id, append(existing, payload))
}

func (w *World) SetDrawable(e scene.EntityID, d tileset.DrawableRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.store.isAlive(e) {
		return
	}
	w.sprites.set(idIndex(e), d)
	if n, ok := w.nodes.get(idIndex(e)).(*node); ok {
		w.markParentDirty(n.parent)
	}
}

// CheckImage satisfies the compiler's preflight capability.
func (w *World) CheckImage(path string) error {
	if w.cache == nil {
		return nil
	}
	return w.cache.Check(path)
}

// IsAlive reports whether the handle refers to a live entity.
func (w *World) IsAlive(e scene.EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.isAlive(e)
}

// Transform returns the entity's world transform.
func (w *World) Transform(e scene.EntityID) (scene.Transform, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes.get(idIndex(e)).(*node)
	if !ok || !w.store.isAlive(e) {
		return scene.Transform{}, false
	}
	return n.t, true
}

// Parent returns the entity's parent, zero for roots.
func (w *World) Parent(e scene.EntityID) scene.EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes.get(idIndex(e)).(*node)
	if !ok {
		return 0
	}
	return n.parent
}

// Payloads returns the components attached to the entity.
func (w *World) Payloads(e scene.EntityID) []any {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, _ := w.payloads.get(idIndex(e)).([]any)
	return p
}

// Len reports the number of live entities.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.nodes.denseIDs)
}

// markParentDirty invalidates the parent's batch canvas when the parent is a
// batched layer. Caller holds w.mu.
func (w *World) markParentDirty(parent scene.EntityID) {
	if !parent.Valid() {
		return
	}
	if _, ok := w.batched[parent]; ok {
		w.dirty[parent] = true
	}
}

// spriteEntry is one drawable entity snapshot taken for a draw pass.
type spriteEntry struct {
	id     scene.EntityID
	parent scene.EntityID
	t      scene.Transform
	ref    tileset.DrawableRef
}

// snapshotSprites lists every drawable entity. Caller draws without holding
// the world lock.
func (w *World) snapshotSprites() []spriteEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]spriteEntry, 0, len(w.sprites.denseIDs))
	for i, id := range w.sprites.denseIDs {
		n, ok := w.nodes.get(id).(*node)
		if !ok {
			continue
		}
		ref, _ := w.sprites.denseValues[i].(tileset.DrawableRef)
		out = append(out, spriteEntry{
			id:     makeID(id, w.store.gen[id-1]),
			parent: n.parent,
			t:      n.t,
			ref:    ref,
		})
	}
	return out
}

// takeDirtyBatches returns and clears the set of batched layers whose canvas
// needs rebuilding, along with all known batched layers.
func (w *World) takeDirtyBatches() (dirty map[scene.EntityID]bool, batched map[scene.EntityID]scene.BatchedLayer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirty = w.dirty
	w.dirty = make(map[scene.EntityID]bool)
	batched = make(map[scene.EntityID]scene.BatchedLayer, len(w.batched))
	for k, v := range w.batched {
		batched[k] = v
	}
	return dirty, batched
}
