package scene

import (
	"math"

	"github.com/ghashy/tiledkit/tiled"
	"github.com/ghashy/tiledkit/tileset"
)

// Tiled's pixel space grows downward; the target world grows upward. The
// conversion negates Y after layer offsets are applied in Tiled space, so
// tiles and objects from the same map stay aligned.

// CellWorldPos returns the world position of a cell's top-left corner:
// X = offsetX + col*tileW, Y = -(offsetY + row*tileH).
func CellWorldPos(layer *tiled.Layer, cell tiled.TileCell, tileW, tileH int) (x, y float64) {
	x = layer.OffsetX + float64(cell.Col*tileW)
	y = -(layer.OffsetY + float64(cell.Row*tileH))
	return x, y
}

// TileWorldTransform places a tile cell. Tiles anchor at their center per
// the target convention, so a half-tile correction is applied on top of the
// cell's top-left world position.
func TileWorldTransform(m *tiled.Map, layer *tiled.Layer, cell tiled.TileCell) Transform {
	x, y := CellWorldPos(layer, cell, m.TileWidth, m.TileHeight)
	return Transform{
		X:     x + float64(m.TileWidth)/2,
		Y:     y - float64(m.TileHeight)/2,
		FlipX: cell.FlipH,
		FlipY: cell.FlipV,
	}
}

// ObjectWorldTransform places an object instance. Rectangles, ellipses,
// polygons and points anchor at their declared point. Tile objects anchor
// bottom-left in Tiled and center in the target, so they get a half-size
// correction using the referenced tile's size from the resolver.
func ObjectWorldTransform(m *tiled.Map, layer *tiled.Layer, obj *tiled.Object, res *tileset.Resolver) (Transform, bool) {
	x := layer.OffsetX + obj.X
	y := -(layer.OffsetY + obj.Y)

	if obj.Shape == tiled.ShapeTile {
		w, h, ok := res.TileSizeOf(obj.GID)
		if !ok {
			return Transform{}, false
		}
		x += w / 2
		y += h / 2
	}

	return Transform{
		X:        x,
		Y:        y,
		Rotation: RotationToWorld(obj.Rotation),
		FlipX:    obj.FlipH,
		FlipY:    obj.FlipV,
	}, true
}

// RotationToWorld converts Tiled's clockwise degrees to the target's
// counter-clockwise radians.
func RotationToWorld(degreesCW float64) float64 {
	return -degreesCW * math.Pi / 180
}
