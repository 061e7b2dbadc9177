// Package scene compiles parsed Tiled maps into entity spawn commands for a
// host scene graph. The host is abstracted behind Sink; physics behind
// PhysicsSink. The compile pass is buffered: a map load either commits every
// supported element or commits nothing.
package scene

import (
	"github.com/ghashy/tiledkit/tileset"
)

// EntityID is an opaque host entity identifier. Zero is never a live entity.
type EntityID uint64

// Valid reports whether the ID refers to an entity.
func (e EntityID) Valid() bool { return e > 0 }

// Transform is a world-space placement. The world axis is Y-up; rotation is
// radians, counter-clockwise positive.
type Transform struct {
	X        float64
	Y        float64
	Rotation float64
	FlipX    bool
	FlipY    bool
	// Z orders entities for drawing; the orchestrator assigns layer indices.
	Z int
}

// Sink is the host scene-graph collaborator. It accepts spawn commands and
// returns identifiers the orchestrator retains for later despawn.
type Sink interface {
	// CreateEntity spawns an entity. parent is zero for roots; drawable is
	// nil for container entities (layers, colliders-only objects).
	CreateEntity(parent EntityID, t Transform, drawable *tileset.DrawableRef) EntityID
	// RemoveEntity despawns one entity. Children are removed by the caller
	// first; the sink never cascades.
	RemoveEntity(id EntityID)
	// InsertComponent attaches an opaque payload produced by a registered
	// component handler (or by the orchestrator itself, e.g. BatchedLayer).
	InsertComponent(id EntityID, payload any)
	// SetDrawable swaps the displayed drawable; the animation driver calls
	// this on every frame-index change.
	SetDrawable(id EntityID, d tileset.DrawableRef)
}

// PhysicsSink is the optional physics collaborator.
type PhysicsSink interface {
	// CreateCollider attaches a static collider to an entity placed at t.
	CreateCollider(id EntityID, desc ColliderDescriptor, t Transform)
	// RemoveEntity drops every collider attached to the entity.
	RemoveEntity(id EntityID)
}

// ImageChecker is an optional Sink capability. When implemented, the
// orchestrator pre-flights every distinct drawable image during the compile
// pass so an unreadable file aborts the load before anything spawns.
type ImageChecker interface {
	CheckImage(path string) error
}

// BatchedLayer marks a layer entity for batched-tilemap rendering. The
// orchestrator inserts it on tile layers that requested batching; the uniform
// tile size is validated beforehand.
type BatchedLayer struct {
	TileWidth  int
	TileHeight int
}

// WarningKind classifies non-fatal load diagnostics.
type WarningKind int

const (
	// WarnMissingTile is a tile/object GID with no owning tileset.
	WarnMissingTile WarningKind = iota
	// WarnMissingHandler is a non-empty class name with no registered handler.
	WarnMissingHandler
	// WarnHandlerFailed is a handler that returned an error for one entity.
	WarnHandlerFailed
	// WarnUnsupportedShape is an object shape the collider builder skips,
	// e.g. a non-square ellipse.
	WarnUnsupportedShape
	// WarnSkippedLayer is an image or group layer dropped by the parser.
	WarnSkippedLayer
	// WarnMissingImage is a drawable whose image file could not be read.
	WarnMissingImage
)

func (k WarningKind) String() string {
	switch k {
	case WarnMissingTile:
		return "missing tile"
	case WarnMissingHandler:
		return "missing handler"
	case WarnHandlerFailed:
		return "handler failed"
	case WarnUnsupportedShape:
		return "unsupported shape"
	case WarnSkippedLayer:
		return "skipped layer"
	case WarnMissingImage:
		return "missing image"
	}
	return "unknown"
}

// Warning is one non-fatal diagnostic. The element it names was skipped; the
// rest of the load continued.
type Warning struct {
	Kind   WarningKind
	Layer  string
	Detail string
}

// Report collects the warnings of one load pass, in emission order.
type Report struct {
	Warnings []Warning
}

func (r *Report) add(kind WarningKind, layer, detail string) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Layer: layer, Detail: detail})
}

// HasKind reports whether any warning of the given kind was recorded.
func (r *Report) HasKind(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
