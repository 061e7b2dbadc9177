package scene

import (
	"errors"
	"testing"

	"github.com/ghashy/tiledkit/tiled"
)

func TestBuildCollider(t *testing.T) {
	t.Run("rectangle", func(t *testing.T) {
		desc, err := BuildCollider(&tiled.Object{Shape: tiled.ShapeRectangle, Width: 16, Height: 32})
		if err != nil {
			t.Fatalf("BuildCollider: %v", err)
		}
		if desc.Kind != ColliderBox || desc.HalfW != 8 || desc.HalfH != 16 {
			t.Fatalf("descriptor: %+v", desc)
		}
		// the box centers right of and below the declared top-left point
		if desc.OffsetX != 8 || desc.OffsetY != -16 {
			t.Fatalf("offset: (%g, %g)", desc.OffsetX, desc.OffsetY)
		}
	})

	t.Run("square_ellipse_is_a_ball", func(t *testing.T) {
		desc, err := BuildCollider(&tiled.Object{Shape: tiled.ShapeEllipse, Width: 20, Height: 20})
		if err != nil {
			t.Fatalf("BuildCollider: %v", err)
		}
		if desc.Kind != ColliderBall || desc.Radius != 10 {
			t.Fatalf("descriptor: %+v", desc)
		}
	})

	t.Run("non_square_ellipse_is_skippable", func(t *testing.T) {
		desc, err := BuildCollider(&tiled.Object{Shape: tiled.ShapeEllipse, Width: 20, Height: 10})
		if desc != nil || !errors.Is(err, tiled.ErrUnsupportedFeature) {
			t.Fatalf("got %+v, %v", desc, err)
		}
	})

	t.Run("polygon_flips_y", func(t *testing.T) {
		desc, err := BuildCollider(&tiled.Object{
			Shape:      tiled.ShapePolygon,
			PolyPoints: []tiled.Point{{X: 0, Y: 0}, {X: 16, Y: 0}, {X: 8, Y: 16}},
		})
		if err != nil {
			t.Fatalf("BuildCollider: %v", err)
		}
		if desc.Kind != ColliderHull || len(desc.Points) != 3 {
			t.Fatalf("descriptor: %+v", desc)
		}
		if desc.Points[2] != (Vec2{X: 8, Y: -16}) {
			t.Fatalf("point 2: %+v", desc.Points[2])
		}
	})

	t.Run("degenerate_polygon_carries_nothing", func(t *testing.T) {
		desc, err := BuildCollider(&tiled.Object{
			Shape:      tiled.ShapePolygon,
			PolyPoints: []tiled.Point{{X: 0, Y: 0}, {X: 16, Y: 0}},
		})
		if desc != nil || err != nil {
			t.Fatalf("got %+v, %v", desc, err)
		}
	})

	t.Run("point_carries_nothing", func(t *testing.T) {
		desc, err := BuildCollider(&tiled.Object{Shape: tiled.ShapePoint})
		if desc != nil || err != nil {
			t.Fatalf("got %+v, %v", desc, err)
		}
	})

	t.Run("sizeless_rectangle_carries_nothing", func(t *testing.T) {
		desc, err := BuildCollider(&tiled.Object{Shape: tiled.ShapeRectangle})
		if desc != nil || err != nil {
			t.Fatalf("got %+v, %v", desc, err)
		}
	})
}

func TestBuildTileCollider(t *testing.T) {
	t.Run("rectangle_offsets_from_tile_center", func(t *testing.T) {
		// bottom half of a 16x16 tile
		desc, err := BuildTileCollider(&tiled.Object{
			Shape: tiled.ShapeRectangle, X: 0, Y: 8, Width: 16, Height: 8,
		}, 16, 16)
		if err != nil {
			t.Fatalf("BuildTileCollider: %v", err)
		}
		if desc.HalfW != 8 || desc.HalfH != 4 {
			t.Fatalf("half extents: (%g, %g)", desc.HalfW, desc.HalfH)
		}
		if desc.OffsetX != 0 || desc.OffsetY != -4 {
			t.Fatalf("offset: (%g, %g)", desc.OffsetX, desc.OffsetY)
		}
	})

	t.Run("full_tile_centers_on_entity", func(t *testing.T) {
		desc, err := BuildTileCollider(&tiled.Object{
			Shape: tiled.ShapeRectangle, X: 0, Y: 0, Width: 16, Height: 16,
		}, 16, 16)
		if err != nil {
			t.Fatalf("BuildTileCollider: %v", err)
		}
		if desc.OffsetX != 0 || desc.OffsetY != 0 {
			t.Fatalf("offset: (%g, %g)", desc.OffsetX, desc.OffsetY)
		}
	})

	t.Run("ball", func(t *testing.T) {
		desc, err := BuildTileCollider(&tiled.Object{
			Shape: tiled.ShapeEllipse, X: 4, Y: 4, Width: 8, Height: 8,
		}, 16, 16)
		if err != nil {
			t.Fatalf("BuildTileCollider: %v", err)
		}
		if desc.Kind != ColliderBall || desc.Radius != 4 {
			t.Fatalf("descriptor: %+v", desc)
		}
		if desc.OffsetX != 0 || desc.OffsetY != 0 {
			t.Fatalf("offset: (%g, %g)", desc.OffsetX, desc.OffsetY)
		}
	})

	t.Run("polygon_anchor", func(t *testing.T) {
		desc, err := BuildTileCollider(&tiled.Object{
			Shape:      tiled.ShapePolygon,
			X:          8,
			Y:          16,
			PolyPoints: []tiled.Point{{X: 0, Y: 0}, {X: 8, Y: 0}, {X: 4, Y: -8}},
		}, 16, 16)
		if err != nil {
			t.Fatalf("BuildTileCollider: %v", err)
		}
		if desc.OffsetX != 0 || desc.OffsetY != -8 {
			t.Fatalf("offset: (%g, %g)", desc.OffsetX, desc.OffsetY)
		}
		if desc.Points[2] != (Vec2{X: 4, Y: 8}) {
			t.Fatalf("point 2: %+v", desc.Points[2])
		}
	})

	t.Run("non_square_ellipse_errors", func(t *testing.T) {
		_, err := BuildTileCollider(&tiled.Object{
			Shape: tiled.ShapeEllipse, Width: 8, Height: 4,
		}, 16, 16)
		if !errors.Is(err, tiled.ErrUnsupportedFeature) {
			t.Fatalf("got %v", err)
		}
	})
}
