package render

import (
	"testing"

	"github.com/ghashy/tiledkit/scene"
	"github.com/ghashy/tiledkit/tileset"
)

func TestWorldEntityLifecycle(t *testing.T) {
	w := NewWorld(nil)

	parent := w.CreateEntity(0, scene.Transform{Z: 1}, nil)
	child := w.CreateEntity(parent, scene.Transform{X: 10, Y: -20}, &tileset.DrawableRef{
		ImagePath: "sheet.png", Width: 16, Height: 16,
	})

	if !w.IsAlive(parent) || !w.IsAlive(child) {
		t.Fatalf("entities should be alive")
	}
	if w.Parent(child) != parent {
		t.Fatalf("parent: %v", w.Parent(child))
	}
	tr, ok := w.Transform(child)
	if !ok || tr.X != 10 || tr.Y != -20 {
		t.Fatalf("transform: %+v %v", tr, ok)
	}
	if w.Len() != 2 {
		t.Fatalf("Len = %d", w.Len())
	}

	w.RemoveEntity(child)
	if w.IsAlive(child) {
		t.Fatalf("child should be dead")
	}
	if _, ok := w.Transform(child); ok {
		t.Fatalf("dead entity still has a transform")
	}
	w.RemoveEntity(child) // second remove is a no-op
	if w.Len() != 1 {
		t.Fatalf("Len = %d", w.Len())
	}
}

func TestWorldStaleHandleRejected(t *testing.T) {
	w := NewWorld(nil)

	first := w.CreateEntity(0, scene.Transform{}, nil)
	w.RemoveEntity(first)
	second := w.CreateEntity(0, scene.Transform{X: 5}, nil)

	// the freed slot is reused under a new generation
	if idIndex(first) != idIndex(second) {
		t.Fatalf("slot not reused: %d vs %d", idIndex(first), idIndex(second))
	}
	if first == second {
		t.Fatalf("handles must differ across generations")
	}
	if w.IsAlive(first) {
		t.Fatalf("stale handle reported alive")
	}
	if tr, ok := w.Transform(second); !ok || tr.X != 5 {
		t.Fatalf("new entity transform: %+v %v", tr, ok)
	}
}

func TestWorldComponents(t *testing.T) {
	w := NewWorld(nil)
	e := w.CreateEntity(0, scene.Transform{}, nil)

	w.InsertComponent(e, "a")
	w.InsertComponent(e, 2)
	got := w.Payloads(e)
	if len(got) != 2 || got[0] != "a" || got[1] != 2 {
		t.Fatalf("payloads: %v", got)
	}

	w.InsertComponent(scene.EntityID(999), "ghost")
	if len(w.Payloads(999)) != 0 {
		t.Fatalf("dead entity accepted a component")
	}
}

func TestWorldBatchDirtyTracking(t *testing.T) {
	w := NewWorld(nil)
	layer := w.CreateEntity(0, scene.Transform{}, nil)
	w.InsertComponent(layer, scene.BatchedLayer{TileWidth: 16, TileHeight: 16})

	tile := w.CreateEntity(layer, scene.Transform{}, &tileset.DrawableRef{ImagePath: "a.png", Width: 16, Height: 16})

	dirty, batched := w.takeDirtyBatches()
	if !dirty[layer] {
		t.Fatalf("layer should be dirty after child creation: %v", dirty)
	}
	if _, ok := batched[layer]; !ok {
		t.Fatalf("layer not tracked as batched")
	}

	// no changes since the last take
	dirty, _ = w.takeDirtyBatches()
	if len(dirty) != 0 {
		t.Fatalf("dirty set not cleared: %v", dirty)
	}

	w.SetDrawable(tile, tileset.DrawableRef{ImagePath: "a.png", Width: 16, Height: 16})
	dirty, _ = w.takeDirtyBatches()
	if !dirty[layer] {
		t.Fatalf("drawable change should re-dirty the layer")
	}

	w.RemoveEntity(tile)
	dirty, _ = w.takeDirtyBatches()
	if !dirty[layer] {
		t.Fatalf("child removal should re-dirty the layer")
	}
}

func TestSnapshotSprites(t *testing.T) {
	w := NewWorld(nil)
	w.CreateEntity(0, scene.Transform{}, nil) // container, no sprite
	e := w.CreateEntity(0, scene.Transform{X: 1, Z: 3}, &tileset.DrawableRef{ImagePath: "s.png"})

	snap := w.snapshotSprites()
	if len(snap) != 1 {
		t.Fatalf("snapshot: %+v", snap)
	}
	if snap[0].id != e || snap[0].t.Z != 3 || snap[0].ref.ImagePath != "s.png" {
		t.Fatalf("entry: %+v", snap[0])
	}
}
