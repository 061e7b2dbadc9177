package scene

import (
	"testing"

	"github.com/ghashy/tiledkit/tiled"
	"github.com/ghashy/tiledkit/tileset"
)

func frames(durs ...float64) *tiled.Animation {
	anim := &tiled.Animation{}
	for i, d := range durs {
		anim.Frames = append(anim.Frames, tiled.Frame{LocalID: uint32(i), DurationMS: d})
	}
	return anim
}

func TestAnimatorAdvance(t *testing.T) {
	t.Run("steps_with_carry", func(t *testing.T) {
		a := NewAnimator(frames(100, 150))
		if !a.Advance(110) {
			t.Fatalf("expected frame change")
		}
		if a.Frame() != 1 || a.Remaining() != 10 {
			t.Fatalf("frame=%d acc=%g", a.Frame(), a.Remaining())
		}
	})

	t.Run("wraps_with_carry", func(t *testing.T) {
		a := NewAnimator(frames(100, 150))
		a.Advance(260)
		if a.Frame() != 0 || a.Remaining() != 10 {
			t.Fatalf("frame=%d acc=%g", a.Frame(), a.Remaining())
		}
	})

	t.Run("stall_skips_frames", func(t *testing.T) {
		a := NewAnimator(frames(50, 50, 50))
		a.Advance(230)
		// 230 covers four full frames plus 30ms into the fifth
		if a.Frame() != 1 || a.Remaining() != 30 {
			t.Fatalf("frame=%d acc=%g", a.Frame(), a.Remaining())
		}
	})

	t.Run("no_change_below_duration", func(t *testing.T) {
		a := NewAnimator(frames(100, 100))
		if a.Advance(99) {
			t.Fatalf("unexpected frame change")
		}
		if a.Frame() != 0 || a.Remaining() != 99 {
			t.Fatalf("frame=%d acc=%g", a.Frame(), a.Remaining())
		}
	})

	t.Run("single_frame_wrap_reports_no_change", func(t *testing.T) {
		a := NewAnimator(frames(100))
		if a.Advance(150) {
			t.Fatalf("single-frame loop should never report a change")
		}
		if a.Remaining() != 50 {
			t.Fatalf("acc=%g", a.Remaining())
		}
	})

	t.Run("zero_duration_frame_skipped", func(t *testing.T) {
		a := NewAnimator(frames(0, 100))
		if !a.Advance(10) {
			t.Fatalf("expected skip past zero-duration frame")
		}
		if a.Frame() != 1 {
			t.Fatalf("frame=%d", a.Frame())
		}
	})

	t.Run("negative_elapsed_ignored", func(t *testing.T) {
		a := NewAnimator(frames(100))
		if a.Advance(-5) || a.Remaining() != 0 {
			t.Fatalf("negative elapsed should be ignored")
		}
	})

	t.Run("restart", func(t *testing.T) {
		a := NewAnimator(frames(100, 100))
		a.Advance(150)
		a.Restart()
		if a.Frame() != 0 || a.Remaining() != 0 {
			t.Fatalf("frame=%d acc=%g", a.Frame(), a.Remaining())
		}
	})
}

func TestNewAnimatorNil(t *testing.T) {
	if NewAnimator(nil) != nil {
		t.Fatalf("nil animation should yield nil animator")
	}
	if NewAnimator(&tiled.Animation{}) != nil {
		t.Fatalf("empty animation should yield nil animator")
	}
}

func animTestMap() *tiled.Map {
	return &tiled.Map{
		TileWidth:  16,
		TileHeight: 16,
		Tilesets: []*tiled.Tileset{{
			FirstGID:   1,
			TileWidth:  16,
			TileHeight: 16,
			TileCount:  4,
			Columns:    2,
			Image:      "sheet.png",
		}},
	}
}

func TestAnimationSetTick(t *testing.T) {
	m := animTestMap()
	res := tileset.NewResolver(m)
	sink := newFakeSink()
	set := NewAnimationSet(res, sink)

	e1 := sink.CreateEntity(0, Transform{}, nil)
	e2 := sink.CreateEntity(0, Transform{}, nil)
	set.Register(e1, 1, frames(100, 100))
	set.Register(e2, 2, nil) // no animation, not registered
	if set.Len() != 1 {
		t.Fatalf("Len = %d", set.Len())
	}

	set.Tick(50)
	if len(sink.drawableUpdates) != 0 {
		t.Fatalf("no update expected yet: %v", sink.drawableUpdates)
	}

	set.Tick(60)
	if len(sink.drawableUpdates) != 1 || sink.drawableUpdates[0] != e1 {
		t.Fatalf("updates: %v", sink.drawableUpdates)
	}
	// frame 1 is local tile 1: column 1 of the sheet
	d := sink.drawables[e1]
	if d == nil || d.Rect.Min.X != 16 {
		t.Fatalf("drawable after tick: %+v", d)
	}

	set.Remove(e1)
	if set.Len() != 0 {
		t.Fatalf("Len after remove = %d", set.Len())
	}
	set.Tick(1000)
	if len(sink.drawableUpdates) != 1 {
		t.Fatalf("removed entity still updating: %v", sink.drawableUpdates)
	}
}
