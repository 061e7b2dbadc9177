package scene

import (
	"fmt"

	"github.com/ghashy/tiledkit/tiled"
)

// ColliderKind discriminates collider shapes. All colliders are static.
type ColliderKind int

const (
	ColliderBox ColliderKind = iota
	ColliderBall
	ColliderHull
)

// Vec2 is a point in world axis (Y up).
type Vec2 struct {
	X float64
	Y float64
}

// ColliderDescriptor describes one static collision shape for the physics
// sink, positioned relative to its owning entity in world axis.
type ColliderDescriptor struct {
	Kind ColliderKind
	// HalfW, HalfH for ColliderBox.
	HalfW float64
	HalfH float64
	// Radius for ColliderBall.
	Radius float64
	// Points for ColliderHull, relative to the owning entity, wound as
	// declared (convexity assumed).
	Points []Vec2
	// OffsetX, OffsetY shift the shape's center from the entity origin.
	OffsetX float64
	OffsetY float64
}

// BuildCollider translates a standalone object's geometry into a collider.
// The owning entity anchors at the object's declared point. Returns
// (nil, nil) for shapes that carry no collider (points, sizeless tile
// objects) and (nil, err) for unsupported geometry the caller should warn
// about and skip.
func BuildCollider(obj *tiled.Object) (*ColliderDescriptor, error) {
	switch obj.Shape {
	case tiled.ShapeRectangle:
		if obj.Width <= 0 || obj.Height <= 0 {
			return nil, nil
		}
		return &ColliderDescriptor{
			Kind:    ColliderBox,
			HalfW:   obj.Width / 2,
			HalfH:   obj.Height / 2,
			OffsetX: obj.Width / 2,
			OffsetY: -obj.Height / 2,
		}, nil
	case tiled.ShapeEllipse:
		if obj.Width != obj.Height {
			return nil, fmt.Errorf("%w: non-square ellipse %gx%g", tiled.ErrUnsupportedFeature, obj.Width, obj.Height)
		}
		if obj.Width <= 0 {
			return nil, nil
		}
		return &ColliderDescriptor{
			Kind:    ColliderBall,
			Radius:  obj.Width / 2,
			OffsetX: obj.Width / 2,
			OffsetY: -obj.Height / 2,
		}, nil
	case tiled.ShapePolygon:
		if len(obj.PolyPoints) < 3 {
			return nil, nil
		}
		pts := make([]Vec2, len(obj.PolyPoints))
		for i, p := range obj.PolyPoints {
			pts[i] = Vec2{X: p.X, Y: -p.Y}
		}
		return &ColliderDescriptor{Kind: ColliderHull, Points: pts}, nil
	default:
		// Points and tile objects without explicit collision carry none.
		return nil, nil
	}
}

// BuildTileCollider translates one shape of a tile's embedded collision
// group. Shape coordinates are relative to the tile's top-left in Tiled
// space; the owning entity anchors at the tile's center, so offsets are
// corrected against the container size.
func BuildTileCollider(obj *tiled.Object, containerW, containerH float64) (*ColliderDescriptor, error) {
	switch obj.Shape {
	case tiled.ShapeRectangle:
		if obj.Width <= 0 || obj.Height <= 0 {
			return nil, nil
		}
		return &ColliderDescriptor{
			Kind:    ColliderBox,
			HalfW:   obj.Width / 2,
			HalfH:   obj.Height / 2,
			OffsetX: obj.X + obj.Width/2 - containerW/2,
			OffsetY: containerH/2 - obj.Height/2 - obj.Y,
		}, nil
	case tiled.ShapeEllipse:
		if obj.Width != obj.Height {
			return nil, fmt.Errorf("%w: non-square ellipse %gx%g", tiled.ErrUnsupportedFeature, obj.Width, obj.Height)
		}
		if obj.Width <= 0 {
			return nil, nil
		}
		return &ColliderDescriptor{
			Kind:    ColliderBall,
			Radius:  obj.Width / 2,
			OffsetX: obj.X + obj.Width/2 - containerW/2,
			OffsetY: containerH/2 - obj.Height/2 - obj.Y,
		}, nil
	case tiled.ShapePolygon:
		if len(obj.PolyPoints) < 3 {
			return nil, nil
		}
		pts := make([]Vec2, len(obj.PolyPoints))
		for i, p := range obj.PolyPoints {
			pts[i] = Vec2{X: p.X, Y: -p.Y}
		}
		return &ColliderDescriptor{
			Kind:    ColliderHull,
			Points:  pts,
			OffsetX: obj.X - containerW/2,
			OffsetY: containerH/2 - obj.Y,
		}, nil
	default:
		return nil, nil
	}
}
