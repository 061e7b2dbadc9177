package scene

import (
	"errors"
	"testing"

	"github.com/ghashy/tiledkit/tiled"
)

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(HandlerFunc{Class: "door"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Sealed() {
		t.Fatalf("registry sealed too early")
	}

	reg.Seal()
	if !reg.Sealed() {
		t.Fatalf("registry not sealed")
	}
	err := reg.Register(HandlerFunc{Class: "late"})
	if !errors.Is(err, ErrSealed) {
		t.Fatalf("post-seal register: %v", err)
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	var hit string
	first := HandlerFunc{Class: "door", Fn: func(EntityID, tiled.PropertyBag, Sink) error {
		hit = "first"
		return nil
	}}
	second := HandlerFunc{Class: "door", Fn: func(EntityID, tiled.PropertyBag, Sink) error {
		hit = "second"
		return nil
	}}
	if err := reg.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(second); err != nil {
		t.Fatalf("Register duplicate: %v", err)
	}
	reg.Seal()

	if err := reg.Dispatch("door", nil, 1, newFakeSink()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if hit != "second" {
		t.Fatalf("dispatched %q", hit)
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Seal()

	if err := reg.Dispatch("", nil, 1, newFakeSink()); err != nil {
		t.Fatalf("empty class should be a no-op: %v", err)
	}
	err := reg.Dispatch("ghost", nil, 1, newFakeSink())
	if !errors.Is(err, ErrNoHandler) {
		t.Fatalf("unregistered class: %v", err)
	}
}

func TestRegistryRejectsEmptyClass(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(HandlerFunc{}); err == nil {
		t.Fatalf("empty class name must not register")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatalf("nil handler must not register")
	}
}
