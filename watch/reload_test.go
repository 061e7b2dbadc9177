package watch

import (
	"testing"
	"testing/fstest"

	"github.com/ghashy/tiledkit/scene"
	"github.com/ghashy/tiledkit/tileset"
)

type countingSink struct {
	nextID scene.EntityID
	live   map[scene.EntityID]bool
}

func newCountingSink() *countingSink {
	return &countingSink{live: make(map[scene.EntityID]bool)}
}

func (c *countingSink) CreateEntity(parent scene.EntityID, t scene.Transform, d *tileset.DrawableRef) scene.EntityID {
	c.nextID++
	c.live[c.nextID] = true
	return c.nextID
}
func (c *countingSink) RemoveEntity(id scene.EntityID) { delete(c.live, id) }

func (c *countingSink) InsertComponent(scene.EntityID, any) {}

func (c *countingSink) SetDrawable(scene.EntityID, tileset.DrawableRef) {}

const reloadMapV1 = `<map orientation="orthogonal" width="1" height="1" tilewidth="16" tileheight="16">
 <objectgroup name="a"><object id="1" x="0" y="0" width="8" height="8"/></objectgroup>
</map>`

const reloadMapV2 = `<map orientation="orthogonal" width="1" height="1" tilewidth="16" tileheight="16">
 <objectgroup name="a">
  <object id="1" x="0" y="0" width="8" height="8"/>
  <object id="2" x="8" y="8" width="8" height="8"/>
 </objectgroup>
</map>`

func TestReloaderSwapsInstance(t *testing.T) {
	doc := &fstest.MapFile{Data: []byte(reloadMapV1)}
	fsys := fstest.MapFS{"level.tmx": doc}
	sink := newCountingSink()
	reg := scene.NewRegistry()
	reg.Seal()
	orch := scene.NewOrchestrator(sink, nil, reg)
	r := NewReloader("assets", fsys, orch)

	r.Track("level.tmx", "main")
	if _, err := r.Load("level.tmx"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sink.live) != 2 { // layer container + one object
		t.Fatalf("live after first load: %d", len(sink.live))
	}

	doc.Data = []byte(reloadMapV2)
	r.HandleChange("assets/level.tmx")
	if len(sink.live) != 3 {
		t.Fatalf("live after reload: %d", len(sink.live))
	}
}

func TestReloaderKeepsInstanceOnParseError(t *testing.T) {
	doc := &fstest.MapFile{Data: []byte(reloadMapV1)}
	fsys := fstest.MapFS{"level.tmx": doc}
	sink := newCountingSink()
	reg := scene.NewRegistry()
	reg.Seal()
	orch := scene.NewOrchestrator(sink, nil, reg)
	r := NewReloader(".", fsys, orch)

	r.Track("level.tmx", "main")
	if _, err := r.Load("level.tmx"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := len(sink.live)

	doc.Data = []byte(`<map orientation="isometric"`)
	r.HandleChange("level.tmx")
	if len(sink.live) != before {
		t.Fatalf("instance changed after broken reload: %d -> %d", before, len(sink.live))
	}
}

func TestReloaderIgnoresUntrackedPaths(t *testing.T) {
	fsys := fstest.MapFS{}
	sink := newCountingSink()
	reg := scene.NewRegistry()
	reg.Seal()
	r := NewReloader(".", fsys, scene.NewOrchestrator(sink, nil, reg))

	r.HandleChange("other.tmx")
	if len(sink.live) != 0 {
		t.Fatalf("untracked change spawned entities")
	}
}

func TestReloaderTilesetChangeReloadsTrackedMaps(t *testing.T) {
	doc := &fstest.MapFile{Data: []byte(reloadMapV1)}
	fsys := fstest.MapFS{"level.tmx": doc}
	sink := newCountingSink()
	reg := scene.NewRegistry()
	reg.Seal()
	r := NewReloader(".", fsys, scene.NewOrchestrator(sink, nil, reg))

	r.Track("level.tmx", "main")
	if _, err := r.Load("level.tmx"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	doc.Data = []byte(reloadMapV2)
	r.HandleChange("ground.tsx")
	if len(sink.live) != 3 {
		t.Fatalf("tileset change should reload tracked maps: %d", len(sink.live))
	}
}
