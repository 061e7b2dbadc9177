package scene

import (
	"github.com/ghashy/tiledkit/tiled"
	"github.com/ghashy/tiledkit/tileset"
)

// Animator is the frame state machine of one spawned tile instance. It has
// no terminal state; it advances for as long as the instance exists.
type Animator struct {
	frames []tiled.Frame
	frame  int
	// acc is elapsed time inside the current frame, milliseconds.
	acc float64
}

// NewAnimator starts an animator at frame 0.
func NewAnimator(anim *tiled.Animation) *Animator {
	if anim == nil || len(anim.Frames) == 0 {
		return nil
	}
	return &Animator{frames: anim.Frames}
}

// Advance accrues elapsed milliseconds and steps frames while the
// accumulator covers the current frame's duration, wrapping modulo the
// sequence length. Leftover time carries over, so long stalls skip frames
// instead of dropping time. Reports whether the frame index changed.
func (a *Animator) Advance(elapsedMS float64) bool {
	if a == nil || len(a.frames) == 0 || elapsedMS < 0 {
		return false
	}
	a.acc += elapsedMS
	start := a.frame
	for a.acc >= a.frames[a.frame].DurationMS {
		dur := a.frames[a.frame].DurationMS
		if dur <= 0 {
			// Zero-length frames would spin forever; treat as 1ms.
			dur = 1
		}
		a.acc -= dur
		a.frame = (a.frame + 1) % len(a.frames)
	}
	return a.frame != start
}

// Restart rewinds to frame 0 with an empty accumulator.
func (a *Animator) Restart() {
	a.frame = 0
	a.acc = 0
}

// Frame returns the current frame index.
func (a *Animator) Frame() int { return a.frame }

// LocalID returns the current frame's local tile ID.
func (a *Animator) LocalID() uint32 { return a.frames[a.frame].LocalID }

// Remaining returns the accumulated time inside the current frame.
func (a *Animator) Remaining() float64 { return a.acc }

type animEntry struct {
	entity  EntityID
	anim    *Animator
	tileset *tiled.Tileset
}

// AnimationSet owns the live animators of one map instance. Entries are
// independent; Tick iterates them in registration order for deterministic
// side-effect ordering.
type AnimationSet struct {
	resolver *tileset.Resolver
	sink     Sink
	entries  []animEntry
	index    map[EntityID]int
}

// NewAnimationSet creates an empty set bound to a resolver and sink.
func NewAnimationSet(res *tileset.Resolver, sink Sink) *AnimationSet {
	return &AnimationSet{
		resolver: res,
		sink:     sink,
		index:    make(map[EntityID]int),
	}
}

// Register starts animating entity with the animation owned by gid's tile.
// No-op when the tile carries no animation.
func (s *AnimationSet) Register(entity EntityID, gid uint32, anim *tiled.Animation) {
	a := NewAnimator(anim)
	if a == nil {
		return
	}
	ts := s.resolver.TilesetFor(gid)
	if ts == nil {
		return
	}
	s.index[entity] = len(s.entries)
	s.entries = append(s.entries, animEntry{entity: entity, anim: a, tileset: ts})
}

// Remove stops animating entity. Called on despawn.
func (s *AnimationSet) Remove(entity EntityID) {
	i, ok := s.index[entity]
	if !ok {
		return
	}
	last := len(s.entries) - 1
	if i != last {
		s.entries[i] = s.entries[last]
		s.index[s.entries[i].entity] = i
	}
	s.entries = s.entries[:last]
	delete(s.index, entity)
}

// Len returns the number of live animators.
func (s *AnimationSet) Len() int { return len(s.entries) }

// Tick advances every animator by elapsedMS and pushes drawable updates to
// the sink for entries whose frame index changed.
func (s *AnimationSet) Tick(elapsedMS float64) {
	for _, e := range s.entries {
		if !e.anim.Advance(elapsedMS) {
			continue
		}
		if d, ok := s.resolver.ResolveLocal(e.tileset, e.anim.LocalID()); ok {
			s.sink.SetDrawable(e.entity, d)
		}
	}
}
