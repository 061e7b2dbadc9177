package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScriptSpec binds a Tengo script file to a map class name.
type ScriptSpec struct {
	Class string `yaml:"class"`
	File  string `yaml:"file"`
}

// Config is the viewer's yaml configuration.
type Config struct {
	AssetsDir  string       `yaml:"assets_dir"`
	Maps       []string     `yaml:"maps"`
	Scripts    []ScriptSpec `yaml:"scripts"`
	DebounceMS int          `yaml:"debounce_ms"`
	Window     WindowSpec   `yaml:"window"`
	Zoom       float64      `yaml:"zoom"`
}

type WindowSpec struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// LoadConfig reads and validates the yaml config at filename.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("viewer: load %s: %w", filename, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("viewer: unmarshal %s: %w", filename, err)
	}

	if cfg.AssetsDir == "" {
		cfg.AssetsDir = "."
	}
	if cfg.Window.Title == "" {
		cfg.Window.Title = "tiledkit viewer"
	}
	if cfg.Window.Width <= 0 {
		cfg.Window.Width = 1280
	}
	if cfg.Window.Height <= 0 {
		cfg.Window.Height = 720
	}
	if cfg.Zoom <= 0 {
		cfg.Zoom = 1
	}
	if len(cfg.Maps) == 0 {
		return nil, fmt.Errorf("viewer: %s: no maps configured", filename)
	}
	return &cfg, nil
}
