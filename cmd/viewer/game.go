package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ghashy/tiledkit/physics"
	"github.com/ghashy/tiledkit/render"
	"github.com/ghashy/tiledkit/scene"
)

const panSpeed = 6.0

// Game ticks the compiled scenes and draws them. Arrow keys pan the camera,
// +/- zoom.
type Game struct {
	orch     *scene.Orchestrator
	renderer *render.Renderer
	space    *physics.Space
	width    int
	height   int
}

func NewGame(orch *scene.Orchestrator, renderer *render.Renderer, space *physics.Space, width, height int) *Game {
	return &Game{
		orch:     orch,
		renderer: renderer,
		space:    space,
		width:    width,
		height:   height,
	}
}

func (g *Game) Update() error {
	tps := float64(ebiten.TPS())
	if tps <= 0 {
		tps = 60
	}
	g.orch.Tick(1000 / tps)
	if g.space != nil {
		g.space.Step(1 / tps)
	}

	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		g.renderer.Cam.X -= panSpeed / g.renderer.Cam.Zoom
	}
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		g.renderer.Cam.X += panSpeed / g.renderer.Cam.Zoom
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		g.renderer.Cam.Y += panSpeed / g.renderer.Cam.Zoom
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		g.renderer.Cam.Y -= panSpeed / g.renderer.Cam.Zoom
	}
	if ebiten.IsKeyPressed(ebiten.KeyEqual) {
		g.renderer.Cam.Zoom *= 1.02
	}
	if ebiten.IsKeyPressed(ebiten.KeyMinus) {
		g.renderer.Cam.Zoom /= 1.02
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
