package scene

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ghashy/tiledkit/tiled"
	"github.com/ghashy/tiledkit/tileset"
)

// ErrSuperseded marks a load whose target was despawned while the load was
// in flight; its staged results were discarded.
var ErrSuperseded = errors.New("scene: load superseded by despawn")

// MapInstance is every host entity created by one load of a map, retained
// for later despawn.
type MapInstance struct {
	Key string
	// entities in creation order: parents precede children, so the reverse
	// order removes the deepest children first.
	entities []EntityID
	anims    *AnimationSet
}

// Entities returns the created entity IDs in creation order.
func (mi *MapInstance) Entities() []EntityID { return mi.entities }

// Orchestrator drives map loads: it compiles a parsed map into staged spawn
// commands, commits them to the sink as one batch, and tracks the created
// entities per instance key for despawn and reload.
type Orchestrator struct {
	sink     Sink
	physics  PhysicsSink
	registry *Registry

	mu   sync.Mutex
	keys map[string]*keyState
}

// keyState serializes spawn and despawn for one instance key. gen advances
// on every despawn so in-flight loads can detect they were superseded.
type keyState struct {
	mu   sync.Mutex
	gen  uint64
	live *MapInstance
}

// NewOrchestrator creates an orchestrator. physics may be nil when the host
// has no physics sink; registry may be nil to use the process-wide one.
func NewOrchestrator(sink Sink, physics PhysicsSink, registry *Registry) *Orchestrator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Orchestrator{
		sink:     sink,
		physics:  physics,
		registry: registry,
		keys:     make(map[string]*keyState),
	}
}

func (o *Orchestrator) key(key string) *keyState {
	o.mu.Lock()
	defer o.mu.Unlock()
	ks, ok := o.keys[key]
	if !ok {
		ks = &keyState{}
		o.keys[key] = ks
	}
	return ks
}

// Load compiles and spawns m under the given instance key. A live instance
// under the same key is despawned first (reload semantics). The compile pass
// is buffered: on a fatal error nothing is committed and any previous
// instance stays live. Warnings never abort the pass.
func (o *Orchestrator) Load(key string, m *tiled.Map) (*MapInstance, *Report, error) {
	ks := o.key(key)
	ks.mu.Lock()
	startGen := ks.gen
	ks.mu.Unlock()

	res := tileset.NewResolver(m)
	staged, report, err := o.compile(m, res)
	if err != nil {
		return nil, report, err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.gen != startGen {
		// A despawn for this key landed mid-load; do not resurrect it.
		return nil, report, fmt.Errorf("%w: %q", ErrSuperseded, key)
	}
	if ks.live != nil {
		o.removeInstance(ks.live)
		ks.live = nil
		ks.gen++
	}
	inst := o.commit(key, staged, res, report)
	ks.live = inst
	return inst, report, nil
}

// Despawn removes every entity of the live instance under key, deepest
// children first. Reports whether an instance was live.
func (o *Orchestrator) Despawn(key string) bool {
	ks := o.key(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.gen++
	if ks.live == nil {
		return false
	}
	o.removeInstance(ks.live)
	ks.live = nil
	return true
}

// Instance returns the live instance under key, or nil.
func (o *Orchestrator) Instance(key string) *MapInstance {
	ks := o.key(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.live
}

// Tick advances every live instance's animation driver by elapsedMS. Called
// once per host frame.
func (o *Orchestrator) Tick(elapsedMS float64) {
	o.mu.Lock()
	states := make([]*keyState, 0, len(o.keys))
	for _, ks := range o.keys {
		states = append(states, ks)
	}
	o.mu.Unlock()
	for _, ks := range states {
		ks.mu.Lock()
		if ks.live != nil {
			ks.live.anims.Tick(elapsedMS)
		}
		ks.mu.Unlock()
	}
}

func (o *Orchestrator) removeInstance(inst *MapInstance) {
	for i := len(inst.entities) - 1; i >= 0; i-- {
		id := inst.entities[i]
		inst.anims.Remove(id)
		if o.physics != nil {
			o.physics.RemoveEntity(id)
		}
		o.sink.RemoveEntity(id)
	}
	inst.entities = nil
}

// stagedEntity is one buffered spawn command. parentIdx points into the
// staged slice; parents always precede children.
type stagedEntity struct {
	parentIdx int
	t         Transform
	drawable  *tileset.DrawableRef
	class     string
	props     tiled.PropertyBag
	animGID   uint32
	anim      *tiled.Animation
	colliders []ColliderDescriptor
	payloads  []any
}

// compile walks the document in layer order and stages every spawn command.
// Fatal errors (unsupported features, unreadable images) return before
// anything reaches the sink.
func (o *Orchestrator) compile(m *tiled.Map, res *tileset.Resolver) ([]stagedEntity, *Report, error) {
	report := &Report{}
	for _, name := range m.SkippedLayers {
		report.add(WarnSkippedLayer, name, "layer kind not supported")
	}

	var staged []stagedEntity
	for li := range m.Layers {
		layer := &m.Layers[li]
		layerIdx := len(staged)
		layerEnt := stagedEntity{
			parentIdx: -1,
			t:         Transform{Z: li},
		}
		if layer.Kind == tiled.LayerTile && layer.Batched {
			if err := validateBatched(m, layer, res); err != nil {
				return nil, report, err
			}
			layerEnt.payloads = append(layerEnt.payloads, BatchedLayer{
				TileWidth:  m.TileWidth,
				TileHeight: m.TileHeight,
			})
		}
		staged = append(staged, layerEnt)

		switch layer.Kind {
		case tiled.LayerTile:
			staged = o.compileTiles(m, layer, li, layerIdx, res, staged, report)
		case tiled.LayerObject:
			var err error
			staged, err = o.compileObjects(m, layer, li, layerIdx, res, staged, report)
			if err != nil {
				return nil, report, err
			}
		}
	}

	if err := o.preflightImages(staged); err != nil {
		return nil, report, err
	}
	return staged, report, nil
}

func (o *Orchestrator) compileTiles(m *tiled.Map, layer *tiled.Layer, z, parentIdx int, res *tileset.Resolver, staged []stagedEntity, report *Report) []stagedEntity {
	for _, cell := range layer.Cells {
		drawable, ok := res.Resolve(cell.GID)
		if !ok {
			report.add(WarnMissingTile, layer.Name, fmt.Sprintf("global tile ID %d out of range", cell.GID))
			continue
		}
		t := TileWorldTransform(m, layer, cell)
		t.Z = z
		ent := stagedEntity{
			parentIdx: parentIdx,
			t:         t,
			drawable:  &drawable,
			class:     res.ClassOf(cell.GID),
			props:     res.PropertiesOf(cell.GID),
			animGID:   cell.GID,
			anim:      res.AnimationOf(cell.GID),
		}
		tw, th, _ := res.TileSizeOf(cell.GID)
		collision := res.CollisionOf(cell.GID)
		for i := range collision {
			desc, err := BuildTileCollider(&collision[i], tw, th)
			if err != nil {
				report.add(WarnUnsupportedShape, layer.Name, err.Error())
				continue
			}
			if desc != nil {
				ent.colliders = append(ent.colliders, *desc)
			}
		}
		staged = append(staged, ent)
	}
	return staged
}

func (o *Orchestrator) compileObjects(m *tiled.Map, layer *tiled.Layer, z, parentIdx int, res *tileset.Resolver, staged []stagedEntity, report *Report) ([]stagedEntity, error) {
	for i := range layer.Objects {
		obj := &layer.Objects[i]
		ent := stagedEntity{
			parentIdx: parentIdx,
			class:     obj.Class,
			props:     obj.Properties,
		}

		if obj.Shape == tiled.ShapeTile {
			drawable, ok := res.Resolve(obj.GID)
			if !ok {
				report.add(WarnMissingTile, layer.Name, fmt.Sprintf("object %d: global tile ID %d out of range", obj.ID, obj.GID))
				continue
			}
			w, h, _ := res.TileSizeOf(obj.GID)
			if (obj.Width > 0 && obj.Width != w) || (obj.Height > 0 && obj.Height != h) {
				return nil, fmt.Errorf("%w: object %d is scaled (%gx%g, tile is %gx%g)",
					tiled.ErrUnsupportedFeature, obj.ID, obj.Width, obj.Height, w, h)
			}
			ent.drawable = &drawable
			ent.animGID = obj.GID
			ent.anim = res.AnimationOf(obj.GID)
			if ent.class == "" {
				ent.class = res.ClassOf(obj.GID)
				ent.props = res.PropertiesOf(obj.GID)
			}
			collision := res.CollisionOf(obj.GID)
			for j := range collision {
				desc, err := BuildTileCollider(&collision[j], w, h)
				if err != nil {
					report.add(WarnUnsupportedShape, layer.Name, err.Error())
					continue
				}
				if desc != nil {
					ent.colliders = append(ent.colliders, *desc)
				}
			}
		} else {
			desc, err := BuildCollider(obj)
			if err != nil {
				report.add(WarnUnsupportedShape, layer.Name, fmt.Sprintf("object %d: %v", obj.ID, err))
			} else if desc != nil {
				ent.colliders = append(ent.colliders, *desc)
			}
		}

		t, ok := ObjectWorldTransform(m, layer, obj, res)
		if !ok {
			report.add(WarnMissingTile, layer.Name, fmt.Sprintf("object %d: unresolvable tile", obj.ID))
			continue
		}
		t.Z = z
		ent.t = t
		staged = append(staged, ent)
	}
	return staged, nil
}

// validateBatched enforces the uniform-tile-size invariant of batched
// rendering before anything spawns.
func validateBatched(m *tiled.Map, layer *tiled.Layer, res *tileset.Resolver) error {
	for _, cell := range layer.Cells {
		ts := res.TilesetFor(cell.GID)
		if ts == nil {
			continue
		}
		if ts.TileWidth != m.TileWidth || ts.TileHeight != m.TileHeight {
			return fmt.Errorf("%w: batched layer %q mixes tile size %dx%d with map tile size %dx%d",
				tiled.ErrUnsupportedFeature, layer.Name, ts.TileWidth, ts.TileHeight, m.TileWidth, m.TileHeight)
		}
	}
	return nil
}

// preflightImages verifies every distinct drawable image is readable when
// the sink can check, so a broken reference fails the load atomically.
func (o *Orchestrator) preflightImages(staged []stagedEntity) error {
	checker, ok := o.sink.(ImageChecker)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	for i := range staged {
		d := staged[i].drawable
		if d == nil {
			continue
		}
		if _, dup := seen[d.ImagePath]; dup {
			continue
		}
		seen[d.ImagePath] = struct{}{}
		if err := checker.CheckImage(d.ImagePath); err != nil {
			return &tiled.ResourceLoadError{Path: d.ImagePath, Err: err}
		}
	}
	return nil
}

// commit applies staged commands to the sink in order and records every
// created entity on the new instance.
func (o *Orchestrator) commit(key string, staged []stagedEntity, res *tileset.Resolver, report *Report) *MapInstance {
	inst := &MapInstance{
		Key:   key,
		anims: NewAnimationSet(res, o.sink),
	}
	ids := make([]EntityID, len(staged))
	for i := range staged {
		ent := &staged[i]
		parent := EntityID(0)
		if ent.parentIdx >= 0 {
			parent = ids[ent.parentIdx]
		}
		id := o.sink.CreateEntity(parent, ent.t, ent.drawable)
		ids[i] = id
		inst.entities = append(inst.entities, id)

		for _, p := range ent.payloads {
			o.sink.InsertComponent(id, p)
		}
		if ent.class != "" {
			if err := o.registry.Dispatch(ent.class, ent.props, id, o.sink); err != nil {
				kind := WarnHandlerFailed
				if errors.Is(err, ErrNoHandler) {
					kind = WarnMissingHandler
				}
				report.add(kind, "", err.Error())
				log.Printf("scene: dispatch class %q: %v", ent.class, err)
			}
		}
		if ent.anim != nil {
			inst.anims.Register(id, ent.animGID, ent.anim)
		}
		if o.physics != nil {
			for _, desc := range ent.colliders {
				o.physics.CreateCollider(id, desc, ent.t)
			}
		}
	}
	return inst
}
