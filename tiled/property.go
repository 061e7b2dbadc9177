package tiled

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// PropertyKind discriminates the closed set of Tiled property types.
type PropertyKind int

const (
	KindFloat PropertyKind = iota
	KindInt
	KindBool
	KindString
	KindColor
	KindFile
)

func (k PropertyKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindColor:
		return "color"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// PropertyValue is a tagged union over the Tiled property types. Handlers
// switch on Kind and read through the matching accessor; accessors report
// false on a kind mismatch so type errors stay non-fatal.
type PropertyValue struct {
	kind PropertyKind
	f    float64
	i    int
	b    bool
	s    string
	c    color.RGBA
}

// PropertyBag maps property names to values. Names are unique; order is
// irrelevant.
type PropertyBag map[string]PropertyValue

func FloatValue(v float64) PropertyValue  { return PropertyValue{kind: KindFloat, f: v} }
func IntValue(v int) PropertyValue       { return PropertyValue{kind: KindInt, i: v} }
func BoolValue(v bool) PropertyValue     { return PropertyValue{kind: KindBool, b: v} }
func StringValue(v string) PropertyValue { return PropertyValue{kind: KindString, s: v} }
func ColorValue(v color.RGBA) PropertyValue {
	return PropertyValue{kind: KindColor, c: v}
}

// FileValue holds a path relative to the declaring map or tileset.
func FileValue(path string) PropertyValue { return PropertyValue{kind: KindFile, s: path} }

// Kind returns the value's type tag.
func (v PropertyValue) Kind() PropertyKind { return v.kind }

// Float returns the float payload; ok is false on kind mismatch.
func (v PropertyValue) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Int returns the int payload; ok is false on kind mismatch.
func (v PropertyValue) Int() (int, bool) { return v.i, v.kind == KindInt }

// Bool returns the bool payload; ok is false on kind mismatch.
func (v PropertyValue) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// String returns the string payload; ok is false on kind mismatch.
func (v PropertyValue) String() (string, bool) { return v.s, v.kind == KindString }

// Color returns the color payload; ok is false on kind mismatch.
func (v PropertyValue) Color() (color.RGBA, bool) { return v.c, v.kind == KindColor }

// File returns the file-reference payload; ok is false on kind mismatch.
func (v PropertyValue) File() (string, bool) { return v.s, v.kind == KindFile }

// Bool returns the named bool property, or def when absent or mistyped.
func (b PropertyBag) BoolOr(name string, def bool) bool {
	if v, ok := b[name]; ok {
		if bv, ok := v.Bool(); ok {
			return bv
		}
	}
	return def
}

// parseProperty converts one raw (type, value) pair from a document into a
// PropertyValue. Unknown types fall back to string, matching Tiled's default.
func parseProperty(typ, raw string) (PropertyValue, error) {
	switch typ {
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return PropertyValue{}, fmt.Errorf("float property %q: %w", raw, err)
		}
		return FloatValue(f), nil
	case "int":
		i, err := strconv.Atoi(raw)
		if err != nil {
			return PropertyValue{}, fmt.Errorf("int property %q: %w", raw, err)
		}
		return IntValue(i), nil
	case "bool":
		return BoolValue(raw == "true"), nil
	case "color":
		c, err := parseTiledColor(raw)
		if err != nil {
			return PropertyValue{}, err
		}
		return ColorValue(c), nil
	case "file":
		return FileValue(raw), nil
	case "", "string":
		return StringValue(raw), nil
	default:
		return StringValue(raw), nil
	}
}

// parseTiledColor reads Tiled's "#AARRGGBB" or "#RRGGBB" notation.
func parseTiledColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	var a, r, g, b uint64
	var err error
	switch len(hex) {
	case 8:
		a, err = strconv.ParseUint(hex[0:2], 16, 8)
		if err == nil {
			r, err = strconv.ParseUint(hex[2:4], 16, 8)
		}
		if err == nil {
			g, err = strconv.ParseUint(hex[4:6], 16, 8)
		}
		if err == nil {
			b, err = strconv.ParseUint(hex[6:8], 16, 8)
		}
	case 6:
		a = 0xff
		r, err = strconv.ParseUint(hex[0:2], 16, 8)
		if err == nil {
			g, err = strconv.ParseUint(hex[2:4], 16, 8)
		}
		if err == nil {
			b, err = strconv.ParseUint(hex[4:6], 16, 8)
		}
	default:
		return color.RGBA{}, fmt.Errorf("color property %q: bad length", s)
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color property %q: %w", s, err)
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, nil
}
