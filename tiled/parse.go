package tiled

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"path"
)

// ParseFile reads and parses a map document from fsys. External tilesets and
// image paths are resolved relative to the document's directory.
func ParseFile(fsys fs.FS, name string) (*Map, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, &ResourceLoadError{Path: name, Err: err}
	}
	m, err := Parse(data, path.Dir(name), fsys)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Parse parses raw TMX (XML) or TMJ (JSON) document bytes. baseDir is the
// document's declared base location inside fsys; fsys supplies external
// tileset files. A nil fsys is allowed for documents with no external
// references.
func Parse(data []byte, baseDir string, fsys fs.FS) (*Map, error) {
	if looksLikeJSON(data) {
		return parseTMJ(data, baseDir, fsys)
	}
	return parseTMX(data, baseDir, fsys)
}

func parseTMX(data []byte, baseDir string, fsys fs.FS) (*Map, error) {
	var doc xmlMap
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if doc.Orientation != "orthogonal" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOrientation, doc.Orientation)
	}
	if doc.Infinite != 0 {
		return nil, fmt.Errorf("%w: infinite map", ErrUnsupportedFeature)
	}

	props, err := convertXMLProperties(doc.Properties)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	m := &Map{
		Orientation: doc.Orientation,
		Width:       doc.Width,
		Height:      doc.Height,
		TileWidth:   doc.TileWidth,
		TileHeight:  doc.TileHeight,
		BaseDir:     baseDir,
		Properties:  props,
	}

	for _, xts := range doc.Tilesets {
		ts, err := loadXMLTileset(xts, baseDir, fsys)
		if err != nil {
			return nil, err
		}
		m.Tilesets = append(m.Tilesets, ts)
	}

	for _, entry := range doc.Entries {
		switch {
		case entry.tile != nil:
			layer, err := convertXMLTileLayer(entry.tile)
			if err != nil {
				return nil, err
			}
			m.Layers = append(m.Layers, layer)
		case entry.objects != nil:
			layer, err := convertXMLObjectLayer(entry.objects)
			if err != nil {
				return nil, err
			}
			m.Layers = append(m.Layers, layer)
		case entry.skipped != "":
			m.SkippedLayers = append(m.SkippedLayers, entry.skipped)
		}
	}
	return m, nil
}

func convertXMLTileLayer(xl *xmlLayer) (Layer, error) {
	props, err := convertXMLProperties(xl.Properties)
	if err != nil {
		return Layer{}, &ParseError{Err: fmt.Errorf("layer %q: %w", xl.Name, err)}
	}
	raw, err := decodeLayerData(xl.Data, xl.Width, xl.Height)
	if err != nil {
		if isFeatureError(err) {
			return Layer{}, err
		}
		return Layer{}, &ParseError{Err: fmt.Errorf("layer %q: %w", xl.Name, err)}
	}
	layer := Layer{
		Kind:       LayerTile,
		Name:       xl.Name,
		Width:      xl.Width,
		Height:     xl.Height,
		OffsetX:    xl.OffsetX,
		OffsetY:    xl.OffsetY,
		Opacity:    opacityOr1(xl.Opacity),
		Visible:    xl.Visible == nil || *xl.Visible != 0,
		Batched:    props.BoolOr("batch_render", false),
		Properties: props,
	}
	layer.Cells = cellsFromGIDs(raw, xl.Width)
	return layer, nil
}

func convertXMLObjectLayer(xg *xmlObjectGroup) (Layer, error) {
	props, err := convertXMLProperties(xg.Properties)
	if err != nil {
		return Layer{}, &ParseError{Err: fmt.Errorf("layer %q: %w", xg.Name, err)}
	}
	objs, err := convertXMLObjects(xg.Objects)
	if err != nil {
		return Layer{}, &ParseError{Err: fmt.Errorf("layer %q: %w", xg.Name, err)}
	}
	return Layer{
		Kind:       LayerObject,
		Name:       xg.Name,
		OffsetX:    xg.OffsetX,
		OffsetY:    xg.OffsetY,
		Opacity:    opacityOr1(xg.Opacity),
		Visible:    xg.Visible == nil || *xg.Visible != 0,
		Objects:    objs,
		Properties: props,
	}, nil
}

func parseTMJ(data []byte, baseDir string, fsys fs.FS) (*Map, error) {
	var doc jsonMap
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if doc.Orientation != "orthogonal" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOrientation, doc.Orientation)
	}
	if doc.Infinite {
		return nil, fmt.Errorf("%w: infinite map", ErrUnsupportedFeature)
	}

	props, err := convertJSONProperties(doc.Properties)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	m := &Map{
		Orientation: doc.Orientation,
		Width:       doc.Width,
		Height:      doc.Height,
		TileWidth:   doc.TileWidth,
		TileHeight:  doc.TileHeight,
		BaseDir:     baseDir,
		Properties:  props,
	}

	for _, jts := range doc.Tilesets {
		ts, err := loadJSONTileset(jts, baseDir, fsys)
		if err != nil {
			return nil, err
		}
		m.Tilesets = append(m.Tilesets, ts)
	}

	for _, jl := range doc.Layers {
		switch jl.Type {
		case "tilelayer":
			lprops, err := convertJSONProperties(jl.Properties)
			if err != nil {
				return nil, &ParseError{Err: fmt.Errorf("layer %q: %w", jl.Name, err)}
			}
			raw, err := decodeJSONLayerData(jl)
			if err != nil {
				if isFeatureError(err) {
					return nil, err
				}
				return nil, &ParseError{Err: fmt.Errorf("layer %q: %w", jl.Name, err)}
			}
			layer := Layer{
				Kind:       LayerTile,
				Name:       jl.Name,
				Width:      jl.Width,
				Height:     jl.Height,
				OffsetX:    jl.OffsetX,
				OffsetY:    jl.OffsetY,
				Opacity:    jl.Opacity,
				Visible:    jl.Visible,
				Batched:    lprops.BoolOr("batch_render", false),
				Properties: lprops,
			}
			layer.Cells = cellsFromGIDs(raw, jl.Width)
			m.Layers = append(m.Layers, layer)
		case "objectgroup":
			lprops, err := convertJSONProperties(jl.Properties)
			if err != nil {
				return nil, &ParseError{Err: fmt.Errorf("layer %q: %w", jl.Name, err)}
			}
			objs, err := convertJSONObjects(jl.Objects)
			if err != nil {
				return nil, &ParseError{Err: fmt.Errorf("layer %q: %w", jl.Name, err)}
			}
			m.Layers = append(m.Layers, Layer{
				Kind:       LayerObject,
				Name:       jl.Name,
				OffsetX:    jl.OffsetX,
				OffsetY:    jl.OffsetY,
				Opacity:    jl.Opacity,
				Visible:    jl.Visible,
				Objects:    objs,
				Properties: lprops,
			})
		case "imagelayer", "group":
			m.SkippedLayers = append(m.SkippedLayers, fmt.Sprintf("%s %q", jl.Type, jl.Name))
		}
	}
	return m, nil
}

// cellsFromGIDs converts a row-major raw GID slab into non-empty cells.
// Global ID 0 is an empty cell and never produces a TileCell.
func cellsFromGIDs(raw []uint32, width int) []TileCell {
	var cells []TileCell
	for i, rawGID := range raw {
		gid, h, v, d := splitGID(rawGID)
		if gid == 0 {
			continue
		}
		cells = append(cells, TileCell{
			Col:   i % width,
			Row:   i / width,
			GID:   gid,
			FlipH: h,
			FlipV: v,
			FlipD: d,
		})
	}
	return cells
}

func loadXMLTileset(xts xmlTileset, baseDir string, fsys fs.FS) (*Tileset, error) {
	if xts.Source == "" {
		return convertXMLTileset(xts, xts.FirstGID, baseDir)
	}
	p := resolvePath(baseDir, xts.Source)
	if fsys == nil {
		return nil, &ResourceLoadError{Path: p, Err: fmt.Errorf("no filesystem for external tileset")}
	}
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, &ResourceLoadError{Path: p, Err: err}
	}
	return parseTilesetBytes(data, xts.FirstGID, path.Dir(p))
}

func loadJSONTileset(jts jsonTileset, baseDir string, fsys fs.FS) (*Tileset, error) {
	if jts.Source == "" {
		return convertJSONTileset(jts.jsonTilesetBody, jts.FirstGID, baseDir)
	}
	p := resolvePath(baseDir, jts.Source)
	if fsys == nil {
		return nil, &ResourceLoadError{Path: p, Err: fmt.Errorf("no filesystem for external tileset")}
	}
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, &ResourceLoadError{Path: p, Err: err}
	}
	return parseTilesetBytes(data, jts.FirstGID, path.Dir(p))
}

// parseTilesetBytes parses an external tileset file (.tsx or .tsj); either
// grammar may reference from either map format.
func parseTilesetBytes(data []byte, firstGID uint32, baseDir string) (*Tileset, error) {
	if looksLikeJSON(data) {
		var body jsonTilesetBody
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("external tileset: %w", err)}
		}
		return convertJSONTileset(body, firstGID, baseDir)
	}
	var xts xmlTileset
	if err := xml.Unmarshal(data, &xts); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("external tileset: %w", err)}
	}
	return convertXMLTileset(xts, firstGID, baseDir)
}

func convertXMLTileset(xts xmlTileset, firstGID uint32, baseDir string) (*Tileset, error) {
	ts := &Tileset{
		Name:       xts.Name,
		FirstGID:   firstGID,
		TileWidth:  xts.TileWidth,
		TileHeight: xts.TileHeight,
		TileCount:  xts.TileCount,
		Columns:    xts.Columns,
		Margin:     xts.Margin,
		Spacing:    xts.Spacing,
	}
	if xts.Image != nil {
		ts.Image = resolvePath(baseDir, xts.Image.Source)
		ts.ImageWidth = xts.Image.Width
		ts.ImageHeight = xts.Image.Height
	}
	for _, xt := range xts.Tiles {
		def, err := convertXMLTileDef(xt, baseDir)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("tileset %q tile %d: %w", xts.Name, xt.ID, err)}
		}
		if ts.Tiles == nil {
			ts.Tiles = make(map[uint32]*TileDef)
		}
		ts.Tiles[xt.ID] = def
	}
	fillTileCount(ts)
	return ts, nil
}

func convertXMLTileDef(xt xmlTile, baseDir string) (*TileDef, error) {
	props, err := convertXMLProperties(xt.Properties)
	if err != nil {
		return nil, err
	}
	def := &TileDef{
		Class:      xt.class(),
		Properties: props,
	}
	if xt.Image != nil {
		def.ImagePath = resolvePath(baseDir, xt.Image.Source)
		def.ImageWidth = xt.Image.Width
		def.ImageHeight = xt.Image.Height
	}
	if xt.Animation != nil && len(xt.Animation.Frames) > 0 {
		anim := &Animation{Frames: make([]Frame, len(xt.Animation.Frames))}
		for i, f := range xt.Animation.Frames {
			anim.Frames[i] = Frame{LocalID: f.TileID, DurationMS: f.Duration}
		}
		def.Animation = anim
	}
	if xt.ObjectGroup != nil {
		objs, err := convertXMLObjects(xt.ObjectGroup.Objects)
		if err != nil {
			return nil, err
		}
		def.Collision = objs
	}
	return def, nil
}

func convertJSONTileset(body jsonTilesetBody, firstGID uint32, baseDir string) (*Tileset, error) {
	ts := &Tileset{
		Name:       body.Name,
		FirstGID:   firstGID,
		TileWidth:  body.TileWidth,
		TileHeight: body.TileHeight,
		TileCount:  body.TileCount,
		Columns:    body.Columns,
		Margin:     body.Margin,
		Spacing:    body.Spacing,
	}
	if body.Image != "" {
		ts.Image = resolvePath(baseDir, body.Image)
		ts.ImageWidth = body.ImageWidth
		ts.ImageHeight = body.ImageHeight
	}
	for _, jt := range body.Tiles {
		def, err := convertJSONTileDef(jt, baseDir)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("tileset %q tile %d: %w", body.Name, jt.ID, err)}
		}
		if ts.Tiles == nil {
			ts.Tiles = make(map[uint32]*TileDef)
		}
		ts.Tiles[jt.ID] = def
	}
	fillTileCount(ts)
	return ts, nil
}

func convertJSONTileDef(jt jsonTile, baseDir string) (*TileDef, error) {
	props, err := convertJSONProperties(jt.Properties)
	if err != nil {
		return nil, err
	}
	def := &TileDef{
		Class:      jt.class(),
		Properties: props,
	}
	if jt.Image != "" {
		def.ImagePath = resolvePath(baseDir, jt.Image)
		def.ImageWidth = jt.ImageWidth
		def.ImageHeight = jt.ImageHeight
	}
	if len(jt.Animation) > 0 {
		anim := &Animation{Frames: make([]Frame, len(jt.Animation))}
		for i, f := range jt.Animation {
			anim.Frames[i] = Frame{LocalID: f.TileID, DurationMS: f.Duration}
		}
		def.Animation = anim
	}
	if jt.ObjectGroup != nil {
		objs, err := convertJSONObjects(jt.ObjectGroup.Objects)
		if err != nil {
			return nil, err
		}
		def.Collision = objs
	}
	return def, nil
}

// fillTileCount derives a missing tilecount: collections count their tile
// entries, spritesheets derive rows from the image height.
func fillTileCount(ts *Tileset) {
	if ts.TileCount > 0 {
		return
	}
	if ts.Image == "" {
		ts.TileCount = len(ts.Tiles)
		return
	}
	if ts.Columns > 0 && ts.ImageHeight > 0 && ts.TileHeight > 0 {
		rows := (ts.ImageHeight - 2*ts.Margin + ts.Spacing) / (ts.TileHeight + ts.Spacing)
		ts.TileCount = rows * ts.Columns
	}
}

func resolvePath(baseDir, rel string) string {
	if rel == "" {
		return ""
	}
	if baseDir == "" || baseDir == "." {
		return path.Clean(rel)
	}
	return path.Clean(path.Join(baseDir, rel))
}

func opacityOr1(p *float64) float64 {
	if p == nil {
		return 1
	}
	return *p
}

func isFeatureError(err error) bool {
	return errors.Is(err, ErrUnsupportedFeature) || errors.Is(err, ErrUnsupportedOrientation)
}
