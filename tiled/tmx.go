package tiled

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XML document structures for the TMX grammar. Only the subset the compiler
// consumes is modeled; anything else is skipped by the ,any catch-all.

type xmlMap struct {
	XMLName     xml.Name      `xml:"map"`
	Orientation string        `xml:"orientation,attr"`
	Width       int           `xml:"width,attr"`
	Height      int           `xml:"height,attr"`
	TileWidth   int           `xml:"tilewidth,attr"`
	TileHeight  int           `xml:"tileheight,attr"`
	Infinite    int           `xml:"infinite,attr"`
	Properties  xmlProperties `xml:"properties"`
	Tilesets    []xmlTileset  `xml:"tileset"`
	Entries     []layerEntry  `xml:",any"`
}

type xmlProperties struct {
	Properties []xmlProperty `xml:"property"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
	// Multiline string properties carry the value as element text.
	Text string `xml:",chardata"`
}

type xmlTileset struct {
	FirstGID   uint32        `xml:"firstgid,attr"`
	Source     string        `xml:"source,attr"`
	Name       string        `xml:"name,attr"`
	TileWidth  int           `xml:"tilewidth,attr"`
	TileHeight int           `xml:"tileheight,attr"`
	TileCount  int           `xml:"tilecount,attr"`
	Columns    int           `xml:"columns,attr"`
	Margin     int           `xml:"margin,attr"`
	Spacing    int           `xml:"spacing,attr"`
	Image      *xmlImage     `xml:"image"`
	Tiles      []xmlTile     `xml:"tile"`
	Properties xmlProperties `xml:"properties"`
}

type xmlImage struct {
	Source string `xml:"source,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

type xmlTile struct {
	ID uint32 `xml:"id,attr"`
	// Tiled 1.9 renamed the "type" attribute to "class"; accept both.
	Type        string          `xml:"type,attr"`
	Class       string          `xml:"class,attr"`
	Properties  xmlProperties   `xml:"properties"`
	Image       *xmlImage       `xml:"image"`
	Animation   *xmlAnimation   `xml:"animation"`
	ObjectGroup *xmlObjectGroup `xml:"objectgroup"`
}

func (t *xmlTile) class() string {
	if t.Class != "" {
		return t.Class
	}
	return t.Type
}

type xmlAnimation struct {
	Frames []xmlFrame `xml:"frame"`
}

type xmlFrame struct {
	TileID   uint32  `xml:"tileid,attr"`
	Duration float64 `xml:"duration,attr"`
}

type xmlLayer struct {
	Name       string        `xml:"name,attr"`
	Width      int           `xml:"width,attr"`
	Height     int           `xml:"height,attr"`
	OffsetX    float64       `xml:"offsetx,attr"`
	OffsetY    float64       `xml:"offsety,attr"`
	Opacity    *float64      `xml:"opacity,attr"`
	Visible    *int          `xml:"visible,attr"`
	Properties xmlProperties `xml:"properties"`
	Data       xmlData       `xml:"data"`
}

type xmlData struct {
	Encoding    string     `xml:"encoding,attr"`
	Compression string     `xml:"compression,attr"`
	Raw         string     `xml:",chardata"`
	Chunks      []xmlChunk `xml:"chunk"`
}

// xmlChunk only exists in infinite maps, which are rejected.
type xmlChunk struct {
	X int `xml:"x,attr"`
	Y int `xml:"y,attr"`
}

type xmlObjectGroup struct {
	Name       string        `xml:"name,attr"`
	OffsetX    float64       `xml:"offsetx,attr"`
	OffsetY    float64       `xml:"offsety,attr"`
	Opacity    *float64      `xml:"opacity,attr"`
	Visible    *int          `xml:"visible,attr"`
	Properties xmlProperties `xml:"properties"`
	Objects    []xmlObject   `xml:"object"`
}

type xmlObject struct {
	ID         int           `xml:"id,attr"`
	Name       string        `xml:"name,attr"`
	Type       string        `xml:"type,attr"`
	Class      string        `xml:"class,attr"`
	GID        uint32        `xml:"gid,attr"`
	X          float64       `xml:"x,attr"`
	Y          float64       `xml:"y,attr"`
	Width      float64       `xml:"width,attr"`
	Height     float64       `xml:"height,attr"`
	Rotation   float64       `xml:"rotation,attr"`
	Visible    *int          `xml:"visible,attr"`
	Ellipse    *struct{}     `xml:"ellipse"`
	Point      *struct{}     `xml:"point"`
	Polygon    *xmlPoints    `xml:"polygon"`
	Properties xmlProperties `xml:"properties"`
}

func (o *xmlObject) class() string {
	if o.Class != "" {
		return o.Class
	}
	return o.Type
}

type xmlPoints struct {
	Points string `xml:"points,attr"`
}

// layerEntry preserves document order across tile and object layers, which
// separate struct slices would lose. Image and group layers are recorded by
// name so the caller can surface a skip warning.
type layerEntry struct {
	tile    *xmlLayer
	objects *xmlObjectGroup
	skipped string
}

func (e *layerEntry) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	switch start.Name.Local {
	case "layer":
		e.tile = &xmlLayer{}
		return d.DecodeElement(e.tile, &start)
	case "objectgroup":
		e.objects = &xmlObjectGroup{}
		return d.DecodeElement(e.objects, &start)
	case "imagelayer", "group":
		name := start.Name.Local
		for _, a := range start.Attr {
			if a.Name.Local == "name" {
				name = fmt.Sprintf("%s %q", name, a.Value)
			}
		}
		e.skipped = name
		return d.Skip()
	default:
		return d.Skip()
	}
}

// Raw GID flip bits per the TMX format.
const (
	flipHBit = 1 << 31
	flipVBit = 1 << 30
	flipDBit = 1 << 29
	gidMask  = ^uint32(flipHBit | flipVBit | flipDBit)
)

func splitGID(raw uint32) (gid uint32, h, v, d bool) {
	return raw & gidMask, raw&flipHBit != 0, raw&flipVBit != 0, raw&flipDBit != 0
}

// decodeLayerData turns a layer's <data> payload into raw GIDs (flip bits
// still attached), row-major.
func decodeLayerData(data xmlData, width, height int) ([]uint32, error) {
	if len(data.Chunks) > 0 {
		return nil, fmt.Errorf("%w: infinite (chunked) tile layer", ErrUnsupportedFeature)
	}
	switch data.Encoding {
	case "csv":
		return decodeCSV(data.Raw, width*height)
	case "base64":
		return decodeBase64(data.Raw, data.Compression, width*height)
	default:
		return nil, fmt.Errorf("%w: tile data encoding %q", ErrUnsupportedFeature, data.Encoding)
	}
}

func decodeCSV(raw string, want int) ([]uint32, error) {
	keep := func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' {
			return r
		}
		return -1
	}
	fields := strings.Split(strings.Map(keep, raw), ",")
	if len(fields) != want {
		return nil, fmt.Errorf("csv tile data: have %d cells, want %d", len(fields), want)
	}
	gids := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("csv tile data: %w", err)
		}
		gids[i] = uint32(v)
	}
	return gids, nil
}

func decodeBase64(raw, compression string, want int) ([]uint32, error) {
	buf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("base64 tile data: %w", err)
	}
	var r io.Reader = bytes.NewReader(buf)
	switch compression {
	case "":
	case "gzip":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip tile data: %w", err)
		}
		defer gr.Close()
		r = gr
	case "zlib":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zlib tile data: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("%w: tile data compression %q", ErrUnsupportedFeature, compression)
	}
	flat, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tile data: %w", err)
	}
	if len(flat) != want*4 {
		return nil, fmt.Errorf("tile data: have %d bytes, want %d", len(flat), want*4)
	}
	gids := make([]uint32, want)
	for i := range gids {
		gids[i] = binary.LittleEndian.Uint32(flat[i*4:])
	}
	return gids, nil
}

func convertXMLProperties(props xmlProperties) (PropertyBag, error) {
	if len(props.Properties) == 0 {
		return nil, nil
	}
	bag := make(PropertyBag, len(props.Properties))
	for _, p := range props.Properties {
		raw := p.Value
		if raw == "" && p.Text != "" {
			raw = strings.TrimSpace(p.Text)
		}
		v, err := parseProperty(p.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
		bag[p.Name] = v
	}
	return bag, nil
}

func convertXMLObjects(objs []xmlObject) ([]Object, error) {
	out := make([]Object, 0, len(objs))
	for _, xo := range objs {
		props, err := convertXMLProperties(xo.Properties)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", xo.ID, err)
		}
		o := Object{
			ID:         xo.ID,
			Name:       xo.Name,
			Class:      xo.class(),
			X:          xo.X,
			Y:          xo.Y,
			Width:      xo.Width,
			Height:     xo.Height,
			Rotation:   xo.Rotation,
			Visible:    xo.Visible == nil || *xo.Visible != 0,
			Properties: props,
		}
		switch {
		case xo.GID != 0:
			o.Shape = ShapeTile
			o.GID, o.FlipH, o.FlipV, _ = splitGID(xo.GID)
		case xo.Ellipse != nil:
			o.Shape = ShapeEllipse
		case xo.Point != nil:
			o.Shape = ShapePoint
		case xo.Polygon != nil:
			o.Shape = ShapePolygon
			pts, err := parsePoints(xo.Polygon.Points)
			if err != nil {
				return nil, fmt.Errorf("object %d: %w", xo.ID, err)
			}
			o.PolyPoints = pts
		default:
			o.Shape = ShapeRectangle
		}
		out = append(out, o)
	}
	return out, nil
}

// parsePoints reads the "x0,y0 x1,y1 ..." polygon attribute.
func parsePoints(s string) ([]Point, error) {
	fields := strings.Fields(s)
	pts := make([]Point, 0, len(fields))
	for _, f := range fields {
		xy := strings.SplitN(f, ",", 2)
		if len(xy) != 2 {
			return nil, fmt.Errorf("polygon point %q", f)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("polygon point %q: %w", f, err)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("polygon point %q: %w", f, err)
		}
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts, nil
}
