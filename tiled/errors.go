package tiled

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers match with errors.Is.
var (
	// ErrUnsupportedOrientation marks non-orthogonal maps.
	ErrUnsupportedOrientation = errors.New("tiled: unsupported map orientation")
	// ErrUnsupportedFeature marks features the compiler refuses to half-render
	// (infinite layers, unknown data compression, object scaling).
	ErrUnsupportedFeature = errors.New("tiled: unsupported feature")
)

// ParseError reports a malformed document. Fatal to the load.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("tiled: parse: %v", e.Err)
	}
	return fmt.Sprintf("tiled: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResourceLoadError reports an unreadable referenced file (external tileset,
// tileset image). Fatal to the load.
type ResourceLoadError struct {
	Path string
	Err  error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("tiled: load resource %s: %v", e.Path, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }
