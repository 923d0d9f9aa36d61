package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/kiln/engine/math"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Jobs     JobsConfig     `toml:"jobs"`
	Assets   AssetsConfig   `toml:"assets"`
	Logging  LoggingConfig  `toml:"logging"`
}

type AppConfig struct {
	Name string `toml:"name"`
	// frames per second the update loop is capped to, 0 = uncapped
	FrameCap int `toml:"frame_cap"`
	// log fps and the average frame time once a second
	LogMetrics bool `toml:"log_metrics"`
}

type WindowConfig struct {
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// no window and no event pump, the engine runs for a fixed number of frames
	Headless bool `toml:"headless"`
}

type RendererConfig struct {
	Backend string `toml:"backend"` // "null", "vulkan", "metal", "opengl"
}

type JobsConfig struct {
	Workers int `toml:"workers"`
}

type MountConfig struct {
	Tag      string `toml:"tag"`
	Path     string `toml:"path"`
	Priority int    `toml:"priority"`
	ReadOnly bool   `toml:"read_only"`
}

type AssetsConfig struct {
	CacheTag  string        `toml:"cache_tag"`
	SourceTag string        `toml:"source_tag"`
	Watch     bool          `toml:"watch"`
	Mounts    []MountConfig `toml:"mounts"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text", "json" or "logfmt"
}

const (
	maxWorkers  = 64
	maxFrameCap = 1000
	maxExtent   = 16384
)

// Load reads a TOML file over the defaults. Relative mount paths are
// resolved against the directory of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, m := range cfg.Assets.Mounts {
		if !filepath.IsAbs(m.Path) {
			cfg.Assets.Mounts[i].Path = filepath.Join(dir, m.Path)
		}
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and normalises the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := defaults()
	_ = cfg.normalize()
	return cfg
}

func defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:       "Kiln Testbed",
			FrameCap:   60,
			LogMetrics: true,
		},
		Window: WindowConfig{
			PosX:   100,
			PosY:   100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend: "null",
		},
		Jobs: JobsConfig{
			Workers: 4,
		},
		Assets: AssetsConfig{
			CacheTag:  "data",
			SourceTag: "src",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) normalize() error {
	c.Jobs.Workers = math.ClampOrDefault(c.Jobs.Workers, 4, 1, maxWorkers)
	c.App.FrameCap = math.Clamp(c.App.FrameCap, 0, maxFrameCap)
	c.Window.Width = math.ClampOrDefault(c.Window.Width, 1280, 1, maxExtent)
	c.Window.Height = math.ClampOrDefault(c.Window.Height, 720, 1, maxExtent)

	if c.App.Name == "" {
		return fmt.Errorf("app.name must not be empty")
	}
	if c.Assets.CacheTag == "" || c.Assets.SourceTag == "" {
		return fmt.Errorf("assets.cache_tag and assets.source_tag are required")
	}
	if c.Assets.CacheTag == c.Assets.SourceTag {
		return fmt.Errorf("assets.cache_tag and assets.source_tag must differ")
	}
	if len(c.Assets.Mounts) == 0 {
		c.Assets.Mounts = []MountConfig{
			{Tag: c.Assets.SourceTag, Path: "assets", ReadOnly: true},
			{Tag: c.Assets.CacheTag, Path: "cache"},
		}
	}
	for _, m := range c.Assets.Mounts {
		if m.Tag == "" || m.Path == "" {
			return fmt.Errorf("mount needs a tag and a path: %+v", m)
		}
	}
	return nil
}
