// Package physics adapts a Chipmunk space to the scene compiler's physics
// sink. Every collider the compiler emits is a static shape on the space's
// static body; dynamic bodies are the host's business.
package physics

import (
	"sync"

	"github.com/jakecoffman/cp/v2"

	"github.com/ghashy/tiledkit/scene"
)

// CollisionTypeStatic tags every shape created by the compiler. Hosts can
// register collision handlers against it.
const CollisionTypeStatic cp.CollisionType = 1

const defaultFriction = 0.8

// Space owns a Chipmunk space and the static shapes built from map
// colliders, keyed by owning entity so despawn removes them all.
type Space struct {
	mu     sync.Mutex
	space  *cp.Space
	shapes map[scene.EntityID][]*cp.Shape
}

// NewSpace creates a space with no gravity. Static shapes don't need any;
// hosts that add dynamic bodies set their own via Raw().SetGravity.
func NewSpace() *Space {
	space := cp.NewSpace()
	space.Iterations = 20
	return &Space{
		space:  space,
		shapes: make(map[scene.EntityID][]*cp.Shape),
	}
}

// Raw returns the underlying Chipmunk space.
func (s *Space) Raw() *cp.Space {
	if s == nil {
		return nil
	}
	return s.space
}

// CreateCollider adds one static shape for the entity placed at t. The
// descriptor's offset is relative to the entity origin in world axis.
func (s *Space) CreateCollider(id scene.EntityID, desc scene.ColliderDescriptor, t scene.Transform) {
	if s == nil || s.space == nil || !id.Valid() {
		return
	}

	cx := t.X + desc.OffsetX
	cy := t.Y + desc.OffsetY

	var shape *cp.Shape
	switch desc.Kind {
	case scene.ColliderBox:
		bb := cp.BB{
			L: cx - desc.HalfW,
			B: cy - desc.HalfH,
			R: cx + desc.HalfW,
			T: cy + desc.HalfH,
		}
		shape = cp.NewBox2(s.space.StaticBody, bb, 0)
	case scene.ColliderBall:
		shape = cp.NewCircle(s.space.StaticBody, desc.Radius, cp.Vector{X: cx, Y: cy})
	case scene.ColliderHull:
		if len(desc.Points) < 3 {
			return
		}
		verts := make([]cp.Vector, len(desc.Points))
		for i, p := range desc.Points {
			verts[i] = cp.Vector{X: cx + p.X, Y: cy + p.Y}
		}
		shape = cp.NewPolyShapeRaw(s.space.StaticBody, len(verts), verts, 0)
	default:
		return
	}

	shape.SetFriction(defaultFriction)
	shape.SetCollisionType(CollisionTypeStatic)
	s.space.AddShape(shape)

	s.mu.Lock()
	s.shapes[id] = append(s.shapes[id], shape)
	s.mu.Unlock()
}

// RemoveEntity drops every shape that was created for the entity.
func (s *Space) RemoveEntity(id scene.EntityID) {
	if s == nil || s.space == nil {
		return
	}
	s.mu.Lock()
	shapes := s.shapes[id]
	delete(s.shapes, id)
	s.mu.Unlock()
	for _, shape := range shapes {
		s.space.RemoveShape(shape)
	}
}

// ShapeCount reports how many shapes the entity owns.
func (s *Space) ShapeCount(id scene.EntityID) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shapes[id])
}

// Step advances the simulation.
func (s *Space) Step(dt float64) {
	if s == nil || s.space == nil {
		return
	}
	s.space.Step(dt)
}
