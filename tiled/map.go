// Package tiled parses Tiled map-editor documents (TMX and TMJ) into an
// engine-neutral intermediate representation. Only finite orthogonal maps
// with tile and object layers are supported.
package tiled

// LayerKind discriminates layer payloads.
type LayerKind int

const (
	LayerTile LayerKind = iota
	LayerObject
)

// Map is a parsed Tiled document.
type Map struct {
	// Orientation is always "orthogonal" for a successfully parsed map.
	Orientation string
	// Width and Height in tiles.
	Width  int
	Height int
	// TileWidth and TileHeight in pixels.
	TileWidth  int
	TileHeight int
	// Layers in document order (tile and object layers only).
	Layers   []Layer
	Tilesets []*Tileset
	// BaseDir is the directory the document was loaded from; all image and
	// external tileset paths in the IR are already resolved against it.
	BaseDir    string
	Properties PropertyBag
	// SkippedLayers names image and group layers the parser dropped; the
	// orchestrator surfaces them as warnings.
	SkippedLayers []string
}

// PixelWidth returns the map width in pixels.
func (m *Map) PixelWidth() float64 {
	return float64(m.Width * m.TileWidth)
}

// PixelHeight returns the map height in pixels.
func (m *Map) PixelHeight() float64 {
	return float64(m.Height * m.TileHeight)
}

// TilesetFor returns the tileset owning gid, or nil.
func (m *Map) TilesetFor(gid uint32) *Tileset {
	if gid == 0 {
		return nil
	}
	var found *Tileset
	for _, ts := range m.Tilesets {
		if gid >= ts.FirstGID && (found == nil || ts.FirstGID > found.FirstGID) {
			found = ts
		}
	}
	if found != nil && !found.Contains(gid) {
		return nil
	}
	return found
}

// Layer is one tile or object layer.
type Layer struct {
	Kind    LayerKind
	Name    string
	Width   int
	Height  int
	OffsetX float64
	OffsetY float64
	Opacity float64
	Visible bool
	// Batched requests batched-tilemap rendering for a tile layer. Set from
	// the boolean layer property "batch_render". Requires uniform tile size
	// across all referenced tilesets.
	Batched    bool
	Cells      []TileCell
	Objects    []Object
	Properties PropertyBag
}

// TileCell is one non-empty cell of a tile layer. Cells with global ID 0
// are never emitted.
type TileCell struct {
	Col   int
	Row   int
	GID   uint32
	FlipH bool
	FlipV bool
	// FlipD is Tiled's anti-diagonal flip (bit 29). Parsed for fidelity;
	// the transform calculator maps only FlipH/FlipV.
	FlipD bool
}

// ObjectShape discriminates object geometry.
type ObjectShape int

const (
	ShapeRectangle ObjectShape = iota
	ShapeEllipse
	ShapePolygon
	ShapePoint
	ShapeTile
)

// Point is a polygon vertex in Tiled pixel space, relative to the object.
type Point struct {
	X float64
	Y float64
}

// Object is one instance from an object layer, or a collision shape from a
// tile's embedded object group.
type Object struct {
	ID    int
	Name  string
	Class string
	// X, Y in Tiled pixel space. Rectangles and ellipses anchor top-left;
	// tile objects anchor bottom-left.
	X      float64
	Y      float64
	Width  float64
	Height float64
	// Rotation in degrees, clockwise.
	Rotation   float64
	Shape      ObjectShape
	PolyPoints []Point
	// GID is set for ShapeTile objects (flip bits stripped).
	GID        uint32
	FlipH      bool
	FlipV      bool
	Visible    bool
	Properties PropertyBag
}

// Frame is one step of a tile animation.
type Frame struct {
	// LocalID is the tile ID within the owning tileset.
	LocalID uint32
	// DurationMS is the frame display time in milliseconds.
	DurationMS float64
}

// Animation is a looping frame sequence owned by a tile.
type Animation struct {
	Frames []Frame
}

// TileDef is the per-tile metadata of a tileset entry.
type TileDef struct {
	Class      string
	Properties PropertyBag
	Animation  *Animation
	// ImagePath is set for collection-of-images tilesets: the tile's own
	// standalone image, resolved against the declaring file.
	ImagePath   string
	ImageWidth  int
	ImageHeight int
	// Collision holds the tile's embedded collision object group.
	Collision []Object
}

// Tileset owns a contiguous global-ID range.
type Tileset struct {
	Name       string
	FirstGID   uint32
	TileWidth  int
	TileHeight int
	TileCount  int
	// Columns is 0 for collection-of-images tilesets.
	Columns int
	Margin  int
	Spacing int
	// Image is the spritesheet path, or "" for collection tilesets.
	Image       string
	ImageWidth  int
	ImageHeight int
	// Tiles maps local tile ID to its metadata. Spritesheet tilesets only
	// carry entries for tiles that declare metadata; collection tilesets
	// carry one entry per tile.
	Tiles map[uint32]*TileDef
}

// Contains reports whether gid falls in this tileset's global-ID range.
func (ts *Tileset) Contains(gid uint32) bool {
	return gid >= ts.FirstGID && gid < ts.FirstGID+uint32(ts.TileCount)
}

// Tile returns the metadata for a local tile ID, or nil.
func (ts *Tileset) Tile(localID uint32) *TileDef {
	if ts == nil || ts.Tiles == nil {
		return nil
	}
	return ts.Tiles[localID]
}
