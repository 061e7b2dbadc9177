// Command viewer loads Tiled maps into an Ebitengine window and hot-reloads
// them when the documents change on disk.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ghashy/tiledkit/physics"
	"github.com/ghashy/tiledkit/render"
	"github.com/ghashy/tiledkit/scene"
	"github.com/ghashy/tiledkit/script"
	"github.com/ghashy/tiledkit/watch"
)

func main() {
	configPath := flag.String("config", "viewer.yaml", "path to viewer config")
	noWatch := flag.Bool("no-watch", false, "disable hot reload")
	flag.Parse()

	log := initLogger()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	fsys := os.DirFS(cfg.AssetsDir)
	cache := render.NewImageCache(fsys)
	world := render.NewWorld(cache)
	renderer := render.NewRenderer(world, cache)
	renderer.Cam.Zoom = cfg.Zoom
	space := physics.NewSpace()

	registry := scene.NewRegistry()
	for _, spec := range cfg.Scripts {
		src, err := os.ReadFile(filepath.Join(cfg.AssetsDir, spec.File))
		if err != nil {
			log.Fatalf("script %s: %v", spec.File, err)
		}
		h, err := script.NewHandler(spec.Class, src)
		if err != nil {
			log.Fatal(err)
		}
		if err := registry.Register(h); err != nil {
			log.Fatal(err)
		}
	}
	registry.Seal()

	orch := scene.NewOrchestrator(world, space, registry)
	reloader := watch.NewReloader(cfg.AssetsDir, fsys, orch)
	for _, m := range cfg.Maps {
		reloader.Track(m, m)
		report, err := reloader.Load(m)
		if err != nil {
			log.Fatalf("load %s: %v", m, err)
		}
		for _, w := range report.Warnings {
			log.Warnf("load %s: %s: %s", m, w.Kind, w.Detail)
		}
		log.Infof("loaded %s (%d entities)", m, world.Len())
	}

	if !*noWatch {
		debounce := time.Duration(cfg.DebounceMS) * time.Millisecond
		watcher, err := watch.NewWatcher(debounce, cfg.AssetsDir)
		if err != nil {
			log.Fatal(err)
		}
		defer watcher.Close()
		go reloader.Run(watcher)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)

	game := NewGame(orch, renderer, space, cfg.Window.Width, cfg.Window.Height)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
