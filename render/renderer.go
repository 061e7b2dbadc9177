package render

import (
	"log"
	"math"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ghashy/tiledkit/scene"
	"github.com/ghashy/tiledkit/tileset"
)

// Camera is the view over the world. World axis is Y-up; the camera centers
// the screen on (X, Y).
type Camera struct {
	X    float64
	Y    float64
	Zoom float64
}

// batchCanvas is a batched layer's prerendered tiles, anchored at its
// top-left corner in world axis.
type batchCanvas struct {
	img  *ebiten.Image
	minX float64
	maxY float64
	z    int
}

// Renderer draws a world's drawable entities. Batched layers are composited
// to offscreen canvases and drawn as single images until a child changes.
type Renderer struct {
	world   *World
	cache   *ImageCache
	Cam     Camera
	batches map[scene.EntityID]*batchCanvas
}

func NewRenderer(world *World, cache *ImageCache) *Renderer {
	return &Renderer{
		world:   world,
		cache:   cache,
		Cam:     Camera{Zoom: 1},
		batches: make(map[scene.EntityID]*batchCanvas),
	}
}

// Draw renders every live drawable to screen, ordered by Z then entity ID.
func (r *Renderer) Draw(screen *ebiten.Image) {
	if r == nil || r.world == nil || screen == nil {
		return
	}

	entries := r.world.snapshotSprites()
	dirty, batched := r.world.takeDirtyBatches()
	for e := range r.batches {
		if _, ok := batched[e]; !ok {
			delete(r.batches, e)
		}
	}

	var direct []spriteEntry
	byBatch := make(map[scene.EntityID][]spriteEntry)
	for _, entry := range entries {
		if _, ok := batched[entry.parent]; ok {
			byBatch[entry.parent] = append(byBatch[entry.parent], entry)
			continue
		}
		direct = append(direct, entry)
	}

	for layer := range batched {
		if dirty[layer] || r.batches[layer] == nil {
			r.rebuildBatch(layer, byBatch[layer])
		}
	}

	sort.SliceStable(direct, func(i, j int) bool {
		if direct[i].t.Z != direct[j].t.Z {
			return direct[i].t.Z < direct[j].t.Z
		}
		return direct[i].id < direct[j].id
	})

	type canvasDraw struct {
		layer scene.EntityID
		c     *batchCanvas
	}
	var canvases []canvasDraw
	for layer, c := range r.batches {
		if c.img != nil {
			canvases = append(canvases, canvasDraw{layer, c})
		}
	}
	sort.Slice(canvases, func(i, j int) bool {
		if canvases[i].c.z != canvases[j].c.z {
			return canvases[i].c.z < canvases[j].c.z
		}
		return canvases[i].layer < canvases[j].layer
	})

	vw, vh := screen.Bounds().Dx(), screen.Bounds().Dy()
	ci, di := 0, 0
	for ci < len(canvases) || di < len(direct) {
		if di >= len(direct) || (ci < len(canvases) && canvases[ci].c.z <= direct[di].t.Z) {
			r.drawCanvas(screen, canvases[ci].c, vw, vh)
			ci++
			continue
		}
		r.drawSprite(screen, direct[di], vw, vh)
		di++
	}
}

// rebuildBatch composites a batched layer's tiles into one canvas. Tiles in
// a batched layer are unrotated and unflipped square stamps, so plain
// translation suffices.
func (r *Renderer) rebuildBatch(layer scene.EntityID, entries []spriteEntry) {
	if len(entries) == 0 {
		delete(r.batches, layer)
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	z := 0
	for _, e := range entries {
		minX = math.Min(minX, e.t.X-e.ref.Width/2)
		maxX = math.Max(maxX, e.t.X+e.ref.Width/2)
		minY = math.Min(minY, e.t.Y-e.ref.Height/2)
		maxY = math.Max(maxY, e.t.Y+e.ref.Height/2)
		z = e.t.Z
	}

	w := int(math.Ceil(maxX - minX))
	h := int(math.Ceil(maxY - minY))
	if w <= 0 || h <= 0 {
		delete(r.batches, layer)
		return
	}

	c := r.batches[layer]
	if c == nil || c.img == nil || c.img.Bounds().Dx() != w || c.img.Bounds().Dy() != h {
		c = &batchCanvas{img: ebiten.NewImage(w, h)}
		r.batches[layer] = c
	}
	c.img.Clear()
	c.minX = minX
	c.maxY = maxY
	c.z = z

	for _, e := range entries {
		img, err := r.image(e.ref)
		if err != nil {
			log.Printf("render: batch %s: %v", e.ref.ImagePath, err)
			continue
		}
		op := &ebiten.DrawImageOptions{}
		applyFlips(op, e.t, e.ref)
		// canvas space: X grows right from minX, Y grows down from maxY
		op.GeoM.Translate(e.t.X-e.ref.Width/2-minX, maxY-(e.t.Y+e.ref.Height/2))
		c.img.DrawImage(img, op)
	}
}

func (r *Renderer) drawCanvas(screen *ebiten.Image, c *batchCanvas, vw, vh int) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(r.Cam.Zoom, r.Cam.Zoom)
	sx, sy := r.toScreen(c.minX, c.maxY, vw, vh)
	op.GeoM.Translate(sx, sy)
	screen.DrawImage(c.img, op)
}

func (r *Renderer) drawSprite(screen *ebiten.Image, e spriteEntry, vw, vh int) {
	if e.ref.ImagePath == "" {
		return
	}
	img, err := r.image(e.ref)
	if err != nil {
		log.Printf("render: %s: %v", e.ref.ImagePath, err)
		return
	}

	op := &ebiten.DrawImageOptions{}
	applyFlips(op, e.t, e.ref)
	op.GeoM.Translate(-e.ref.Width/2, -e.ref.Height/2)
	// world rotation is CCW-positive, screen Y points down
	op.GeoM.Rotate(-e.t.Rotation)
	op.GeoM.Scale(r.Cam.Zoom, r.Cam.Zoom)
	sx, sy := r.toScreen(e.t.X, e.t.Y, vw, vh)
	op.GeoM.Translate(sx, sy)
	screen.DrawImage(img, op)
}

// toScreen converts a world point to screen pixels under the camera.
func (r *Renderer) toScreen(x, y float64, vw, vh int) (float64, float64) {
	return (x-r.Cam.X)*r.Cam.Zoom + float64(vw)/2,
		(r.Cam.Y-y)*r.Cam.Zoom + float64(vh)/2
}

// applyFlips mirrors the drawable within its own box, so the geometry that
// follows sees the same [0,w]x[0,h] extents either way.
func applyFlips(op *ebiten.DrawImageOptions, t scene.Transform, ref tileset.DrawableRef) {
	if !t.FlipX && !t.FlipY {
		return
	}
	sx, sy := 1.0, 1.0
	var dx, dy float64
	if t.FlipX {
		sx = -1
		dx = ref.Width
	}
	if t.FlipY {
		sy = -1
		dy = ref.Height
	}
	op.GeoM.Scale(sx, sy)
	op.GeoM.Translate(dx, dy)
}

func (r *Renderer) image(ref tileset.DrawableRef) (*ebiten.Image, error) {
	base, err := r.cache.Image(ref.ImagePath)
	if err != nil {
		return nil, err
	}
	if ref.FullImage() {
		return base, nil
	}
	sub, _ := base.SubImage(ref.Rect).(*ebiten.Image)
	if sub == nil {
		return base, nil
	}
	return sub, nil
}
