package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileFilters(t *testing.T) {
	cases := []struct {
		path    string
		mapFile bool
		tileset bool
	}{
		{"level.tmx", true, false},
		{"level.TMJ", true, false},
		{"level.json", true, false},
		{"ground.tsx", false, true},
		{"ground.tsj", false, true},
		{"notes.txt", false, false},
		{"sheet.png", false, false},
	}
	for _, c := range cases {
		if got := IsMapFile(c.path); got != c.mapFile {
			t.Fatalf("IsMapFile(%q) = %v", c.path, got)
		}
		if got := IsTilesetFile(c.path); got != c.tileset {
			t.Fatalf("IsTilesetFile(%q) = %v", c.path, got)
		}
	}
}

func TestWatcherEmitsAndDebounces(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(200*time.Millisecond, dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	target := filepath.Join(dir, "level.tmx")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(target, []byte("<map/>"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	// ignored extension never surfaces
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case got := <-w.Events:
		if got != target {
			t.Fatalf("event path: %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no event within timeout")
	}

	// the repeated writes above land inside the debounce window
	select {
	case got := <-w.Events:
		t.Fatalf("unexpected second event: %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherCloseDuringEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(time.Millisecond, dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	// Keep events flowing with no consumer so a send is likely in flight
	// when Close lands.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			name := filepath.Join(dir, "level.tmx")
			if i%2 == 1 {
				name = filepath.Join(dir, "other.tmj")
			}
			_ = os.WriteFile(name, []byte("<map/>"), 0o644)
			time.Sleep(time.Millisecond)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	<-done

	// Events must be drained to closure, never panic on send.
	for range w.Events {
	}
	for range w.Errors {
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(0, dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
