// Package tileset resolves global tile IDs to drawable references and
// per-tile metadata. A Resolver is a pure view over a parsed map's tileset
// table; the table is immutable after parsing, so lookups never invalidate.
package tileset

import (
	"image"

	"github.com/ghashy/tiledkit/tiled"
)

// DrawableRef is an opaque handle to a renderable image region: either a
// source rectangle inside a spritesheet, or a standalone image.
type DrawableRef struct {
	// ImagePath is the resolved image file path.
	ImagePath string
	// Rect is the source region within the image. A zero Rect means the
	// whole image (collection-of-images tilesets).
	Rect image.Rectangle
	// Width, Height is the drawable's pixel size.
	Width  float64
	Height float64
}

// FullImage reports whether the drawable covers its whole image file.
func (d DrawableRef) FullImage() bool {
	return d.Rect == image.Rectangle{}
}

// Resolver maps global tile IDs into a map's tileset table.
type Resolver struct {
	tilesets []*tiled.Tileset
}

// NewResolver builds a resolver over m's tilesets.
func NewResolver(m *tiled.Map) *Resolver {
	return &Resolver{tilesets: m.Tilesets}
}

// find returns the owning tileset, or nil for 0 and out-of-range IDs.
func (r *Resolver) find(gid uint32) *tiled.Tileset {
	if gid == 0 {
		return nil
	}
	var found *tiled.Tileset
	for _, ts := range r.tilesets {
		if gid >= ts.FirstGID && (found == nil || ts.FirstGID > found.FirstGID) {
			found = ts
		}
	}
	if found != nil && !found.Contains(gid) {
		return nil
	}
	return found
}

// Resolve maps a global tile ID to its drawable. ok is false for global ID 0
// and out-of-range IDs; the caller decides whether that warrants a warning.
func (r *Resolver) Resolve(gid uint32) (DrawableRef, bool) {
	ts := r.find(gid)
	if ts == nil {
		return DrawableRef{}, false
	}
	return r.resolveLocal(ts, gid-ts.FirstGID)
}

// ResolveLocal maps a local tile ID within ts to its drawable. Used by the
// animation driver, whose frames address tiles locally.
func (r *Resolver) ResolveLocal(ts *tiled.Tileset, localID uint32) (DrawableRef, bool) {
	if ts == nil || localID >= uint32(ts.TileCount) {
		return DrawableRef{}, false
	}
	return r.resolveLocal(ts, localID)
}

func (r *Resolver) resolveLocal(ts *tiled.Tileset, localID uint32) (DrawableRef, bool) {
	if ts.Image == "" {
		// Collection of images: the tile's own file is the drawable.
		def := ts.Tile(localID)
		if def == nil || def.ImagePath == "" {
			return DrawableRef{}, false
		}
		return DrawableRef{
			ImagePath: def.ImagePath,
			Width:     float64(def.ImageWidth),
			Height:    float64(def.ImageHeight),
		}, true
	}
	if ts.Columns <= 0 {
		return DrawableRef{}, false
	}
	col := int(localID) % ts.Columns
	row := int(localID) / ts.Columns
	x := ts.Margin + col*(ts.TileWidth+ts.Spacing)
	y := ts.Margin + row*(ts.TileHeight+ts.Spacing)
	return DrawableRef{
		ImagePath: ts.Image,
		Rect:      image.Rect(x, y, x+ts.TileWidth, y+ts.TileHeight),
		Width:     float64(ts.TileWidth),
		Height:    float64(ts.TileHeight),
	}, true
}

// TilesetFor returns the tileset owning gid, or nil.
func (r *Resolver) TilesetFor(gid uint32) *tiled.Tileset {
	return r.find(gid)
}

// AnimationOf returns the animation definition owned by gid's tile, or nil.
func (r *Resolver) AnimationOf(gid uint32) *tiled.Animation {
	if def := r.tileDef(gid); def != nil {
		return def.Animation
	}
	return nil
}

// ClassOf returns the user-declared class name of gid's tile, or "".
func (r *Resolver) ClassOf(gid uint32) string {
	if def := r.tileDef(gid); def != nil {
		return def.Class
	}
	return ""
}

// PropertiesOf returns the property bag of gid's tile, or nil.
func (r *Resolver) PropertiesOf(gid uint32) tiled.PropertyBag {
	if def := r.tileDef(gid); def != nil {
		return def.Properties
	}
	return nil
}

// CollisionOf returns the collision object group of gid's tile, or nil.
func (r *Resolver) CollisionOf(gid uint32) []tiled.Object {
	if def := r.tileDef(gid); def != nil {
		return def.Collision
	}
	return nil
}

// TileSizeOf returns the pixel size gid's tile renders at. Collection tiles
// use their own image size, spritesheet tiles the tileset tile size.
func (r *Resolver) TileSizeOf(gid uint32) (w, h float64, ok bool) {
	ts := r.find(gid)
	if ts == nil {
		return 0, 0, false
	}
	if ts.Image == "" {
		if def := ts.Tile(gid - ts.FirstGID); def != nil && def.ImageWidth > 0 {
			return float64(def.ImageWidth), float64(def.ImageHeight), true
		}
	}
	return float64(ts.TileWidth), float64(ts.TileHeight), true
}

func (r *Resolver) tileDef(gid uint32) *tiled.TileDef {
	ts := r.find(gid)
	if ts == nil {
		return nil
	}
	return ts.Tile(gid - ts.FirstGID)
}
