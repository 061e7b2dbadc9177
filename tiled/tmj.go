package tiled

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strings"
)

// JSON document structures for the TMJ grammar. Layer order is preserved by
// the single "layers" array, so no ordering shim is needed here.

type jsonMap struct {
	Orientation string         `json:"orientation"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	TileWidth   int            `json:"tilewidth"`
	TileHeight  int            `json:"tileheight"`
	Infinite    bool           `json:"infinite"`
	Layers      []jsonLayer    `json:"layers"`
	Tilesets    []jsonTileset  `json:"tilesets"`
	Properties  []jsonProperty `json:"properties,omitempty"`
}

type jsonLayer struct {
	Name    string `json:"name"`
	Type    string `json:"type"` // "tilelayer" | "objectgroup" | "imagelayer" | "group"
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	OffsetX float64 `json:"offsetx,omitempty"`
	OffsetY float64 `json:"offsety,omitempty"`
	Opacity float64 `json:"opacity"`
	Visible bool    `json:"visible"`
	// Data is a raw GID array, or a base64 string when "encoding" is set.
	Data        json.RawMessage `json:"data,omitempty"`
	Encoding    string          `json:"encoding,omitempty"`
	Compression string          `json:"compression,omitempty"`
	Chunks      json.RawMessage `json:"chunks,omitempty"`
	Objects     []jsonObject    `json:"objects,omitempty"`
	Properties  []jsonProperty  `json:"properties,omitempty"`
}

type jsonObject struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type,omitempty"`
	Class    string  `json:"class,omitempty"`
	GID      uint32  `json:"gid,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation,omitempty"`
	Visible  bool    `json:"visible"`
	Ellipse  bool    `json:"ellipse,omitempty"`
	Point    bool    `json:"point,omitempty"`
	Polygon  []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"polygon,omitempty"`
	Properties []jsonProperty `json:"properties,omitempty"`
}

func (o *jsonObject) class() string {
	if o.Class != "" {
		return o.Class
	}
	return o.Type
}

type jsonTileset struct {
	FirstGID uint32 `json:"firstgid"`
	// Source points at an external tileset file (.tsj/.tsx).
	Source string `json:"source,omitempty"`
	jsonTilesetBody
}

// jsonTilesetBody is shared between embedded tilesets and external .tsj files.
type jsonTilesetBody struct {
	Name        string         `json:"name,omitempty"`
	TileWidth   int            `json:"tilewidth,omitempty"`
	TileHeight  int            `json:"tileheight,omitempty"`
	TileCount   int            `json:"tilecount,omitempty"`
	Columns     int            `json:"columns,omitempty"`
	Margin      int            `json:"margin,omitempty"`
	Spacing     int            `json:"spacing,omitempty"`
	Image       string         `json:"image,omitempty"`
	ImageWidth  int            `json:"imagewidth,omitempty"`
	ImageHeight int            `json:"imageheight,omitempty"`
	Tiles       []jsonTile     `json:"tiles,omitempty"`
	Properties  []jsonProperty `json:"properties,omitempty"`
}

type jsonTile struct {
	ID          uint32         `json:"id"`
	Type        string         `json:"type,omitempty"`
	Class       string         `json:"class,omitempty"`
	Image       string         `json:"image,omitempty"`
	ImageWidth  int            `json:"imagewidth,omitempty"`
	ImageHeight int            `json:"imageheight,omitempty"`
	Animation   []jsonFrame    `json:"animation,omitempty"`
	ObjectGroup *jsonLayer     `json:"objectgroup,omitempty"`
	Properties  []jsonProperty `json:"properties,omitempty"`
}

func (t *jsonTile) class() string {
	if t.Class != "" {
		return t.Class
	}
	return t.Type
}

type jsonFrame struct {
	TileID   uint32  `json:"tileid"`
	Duration float64 `json:"duration"`
}

type jsonProperty struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

func convertJSONProperties(props []jsonProperty) (PropertyBag, error) {
	if len(props) == 0 {
		return nil, nil
	}
	bag := make(PropertyBag, len(props))
	for _, p := range props {
		v, err := convertJSONProperty(p)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
		bag[p.Name] = v
	}
	return bag, nil
}

func convertJSONProperty(p jsonProperty) (PropertyValue, error) {
	switch p.Type {
	case "float":
		f, ok := p.Value.(float64)
		if !ok {
			return PropertyValue{}, fmt.Errorf("float property: %T", p.Value)
		}
		return FloatValue(f), nil
	case "int":
		// encoding/json decodes all numbers as float64.
		f, ok := p.Value.(float64)
		if !ok {
			return PropertyValue{}, fmt.Errorf("int property: %T", p.Value)
		}
		return IntValue(int(f)), nil
	case "bool":
		b, ok := p.Value.(bool)
		if !ok {
			return PropertyValue{}, fmt.Errorf("bool property: %T", p.Value)
		}
		return BoolValue(b), nil
	case "color":
		s, ok := p.Value.(string)
		if !ok {
			return PropertyValue{}, fmt.Errorf("color property: %T", p.Value)
		}
		if s == "" {
			return ColorValue(color.RGBA{}), nil
		}
		c, err := parseTiledColor(s)
		if err != nil {
			return PropertyValue{}, err
		}
		return ColorValue(c), nil
	case "file":
		s, ok := p.Value.(string)
		if !ok {
			return PropertyValue{}, fmt.Errorf("file property: %T", p.Value)
		}
		return FileValue(s), nil
	case "", "string":
		s, ok := p.Value.(string)
		if !ok {
			return PropertyValue{}, fmt.Errorf("string property: %T", p.Value)
		}
		return StringValue(s), nil
	default:
		if s, ok := p.Value.(string); ok {
			return StringValue(s), nil
		}
		return PropertyValue{}, fmt.Errorf("property type %q: %T", p.Type, p.Value)
	}
}

// decodeJSONLayerData handles both the plain GID array and the base64 string
// form of a tile layer's "data" field.
func decodeJSONLayerData(l jsonLayer) ([]uint32, error) {
	if len(l.Chunks) > 0 && string(l.Chunks) != "null" {
		return nil, fmt.Errorf("%w: infinite (chunked) tile layer", ErrUnsupportedFeature)
	}
	want := l.Width * l.Height
	if l.Encoding == "base64" {
		var s string
		if err := json.Unmarshal(l.Data, &s); err != nil {
			return nil, fmt.Errorf("tile data: %w", err)
		}
		return decodeBase64(s, l.Compression, want)
	}
	var gids []uint32
	if err := json.Unmarshal(l.Data, &gids); err != nil {
		return nil, fmt.Errorf("tile data: %w", err)
	}
	if len(gids) != want {
		return nil, fmt.Errorf("tile data: have %d cells, want %d", len(gids), want)
	}
	return gids, nil
}

func convertJSONObjects(objs []jsonObject) ([]Object, error) {
	out := make([]Object, 0, len(objs))
	for _, jo := range objs {
		props, err := convertJSONProperties(jo.Properties)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", jo.ID, err)
		}
		o := Object{
			ID:         jo.ID,
			Name:       jo.Name,
			Class:      jo.class(),
			X:          jo.X,
			Y:          jo.Y,
			Width:      jo.Width,
			Height:     jo.Height,
			Rotation:   jo.Rotation,
			Visible:    jo.Visible,
			Properties: props,
		}
		switch {
		case jo.GID != 0:
			o.Shape = ShapeTile
			o.GID, o.FlipH, o.FlipV, _ = splitGID(jo.GID)
		case jo.Ellipse:
			o.Shape = ShapeEllipse
		case jo.Point:
			o.Shape = ShapePoint
		case len(jo.Polygon) > 0:
			o.Shape = ShapePolygon
			pts := make([]Point, len(jo.Polygon))
			for i, p := range jo.Polygon {
				pts[i] = Point{X: p.X, Y: p.Y}
			}
			o.PolyPoints = pts
		default:
			o.Shape = ShapeRectangle
		}
		out = append(out, o)
	}
	return out, nil
}

// looksLikeJSON sniffs the document format.
func looksLikeJSON(data []byte) bool {
	trimmed := strings.TrimLeft(string(data), " \t\r\n\ufeff")
	return strings.HasPrefix(trimmed, "{")
}
