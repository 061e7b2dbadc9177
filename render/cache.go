package render

import (
	"fmt"
	"image"
	"io/fs"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/hajimehoshi/ebiten/v2"
)

// ImageCache decodes tileset images once and hands out GPU-side copies.
// Paths are slash-relative to the filesystem the maps were parsed from, so
// the refs the resolver produces look up directly.
type ImageCache struct {
	fsys fs.FS

	mu     sync.Mutex
	images map[string]*ebiten.Image
	errs   map[string]error
}

func NewImageCache(fsys fs.FS) *ImageCache {
	return &ImageCache{
		fsys:   fsys,
		images: make(map[string]*ebiten.Image),
		errs:   make(map[string]error),
	}
}

// Check verifies the image decodes without uploading it. Results are cached
// either way.
func (c *ImageCache) Check(path string) error {
	c.mu.Lock()
	if err, ok := c.errs[path]; ok {
		c.mu.Unlock()
		return err
	}
	if _, ok := c.images[path]; ok {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	f, err := c.fsys.Open(path)
	if err != nil {
		c.remember(path, err)
		return err
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		err = fmt.Errorf("decode %s: %w", path, err)
		c.remember(path, err)
		return err
	}
	c.remember(path, nil)
	return nil
}

// Image returns the decoded image for path, loading it on first use.
func (c *ImageCache) Image(path string) (*ebiten.Image, error) {
	c.mu.Lock()
	if img, ok := c.images[path]; ok {
		c.mu.Unlock()
		return img, nil
	}
	if err, ok := c.errs[path]; ok && err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	f, err := c.fsys.Open(path)
	if err != nil {
		c.remember(path, err)
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		err = fmt.Errorf("decode %s: %w", path, err)
		c.remember(path, err)
		return nil, err
	}
	img := ebiten.NewImageFromImage(src)
	c.mu.Lock()
	c.images[path] = img
	delete(c.errs, path)
	c.mu.Unlock()
	return img, nil
}

func (c *ImageCache) remember(path string, err error) {
	c.mu.Lock()
	if err != nil {
		c.errs[path] = err
	} else {
		c.errs[path] = nil
	}
	c.mu.Unlock()
}
