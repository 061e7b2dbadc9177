// Package script backs component handlers with Tengo scripts, so map
// classes can gain behavior without recompiling the host.
package script

import (
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/ghashy/tiledkit/scene"
	"github.com/ghashy/tiledkit/tiled"
)

// Component is the payload a script handler inserts: whatever the script
// left in its `component` global, plus the class it came from.
type Component struct {
	Class string
	Data  map[string]any
}

// Handler runs a compiled Tengo script once per dispatched entity. The
// script sees `entity` (int) and `props` (map) and writes its output to a
// `component` global.
type Handler struct {
	class    string
	compiled *tengo.Compiled
	mu       sync.Mutex
}

// NewHandler compiles src into a handler for the given class name.
func NewHandler(class string, src []byte) (*Handler, error) {
	if class == "" {
		return nil, fmt.Errorf("script: empty class name")
	}
	s := tengo.NewScript(src)
	_ = s.Add("entity", 0)
	_ = s.Add("props", map[string]any{})
	_ = s.Add("component", map[string]any{})
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %q: %w", class, err)
	}
	return &Handler{class: class, compiled: compiled}, nil
}

func (h *Handler) ClassName() string { return h.class }

// Insert runs the script for one entity and attaches the resulting
// component. A script that leaves `component` empty attaches nothing.
func (h *Handler) Insert(target scene.EntityID, props tiled.PropertyBag, sink scene.Sink) error {
	h.mu.Lock()
	compiled := h.compiled.Clone()
	h.mu.Unlock()

	if err := compiled.Set("entity", int64(target)); err != nil {
		return err
	}
	if err := compiled.Set("props", propsToScript(props)); err != nil {
		return err
	}
	if err := compiled.Set("component", &tengo.Map{Value: map[string]tengo.Object{}}); err != nil {
		return err
	}
	if err := compiled.Run(); err != nil {
		return fmt.Errorf("script: run %q: %w", h.class, err)
	}

	data := objectToAny(compiled.Get("component").Object())
	m, ok := data.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	sink.InsertComponent(target, Component{Class: h.class, Data: m})
	return nil
}

func propsToScript(props tiled.PropertyBag) *tengo.Map {
	values := make(map[string]tengo.Object, len(props))
	for name, v := range props {
		switch v.Kind() {
		case tiled.KindFloat:
			f, _ := v.Float()
			values[name] = &tengo.Float{Value: f}
		case tiled.KindInt:
			i, _ := v.Int()
			values[name] = &tengo.Int{Value: int64(i)}
		case tiled.KindBool:
			b, _ := v.Bool()
			if b {
				values[name] = tengo.TrueValue
			} else {
				values[name] = tengo.FalseValue
			}
		case tiled.KindString:
			s, _ := v.String()
			values[name] = &tengo.String{Value: s}
		case tiled.KindColor:
			c, _ := v.Color()
			values[name] = &tengo.Array{Value: []tengo.Object{
				&tengo.Int{Value: int64(c.R)},
				&tengo.Int{Value: int64(c.G)},
				&tengo.Int{Value: int64(c.B)},
				&tengo.Int{Value: int64(c.A)},
			}}
		case tiled.KindFile:
			p, _ := v.File()
			values[name] = &tengo.String{Value: p}
		}
	}
	return &tengo.Map{Value: values}
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return int(v.Value)
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.ImmutableMap:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.Undefined:
		return nil
	default:
		return v.String()
	}
}
