// Package config holds the runtime configuration of the demo.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

type Window struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	Resizable bool   `toml:"resizable"`
}

type GPU struct {
	PreferDiscrete bool `toml:"prefer_discrete"`
	// Interactive prompts on stdin when more than one device qualifies.
	Interactive bool `toml:"interactive"`
	// DeviceIndex forces a device by enumeration order; -1 leaves it to the policy.
	DeviceIndex int `toml:"device_index"`
}

type Swapchain struct {
	PreferMailbox      bool `toml:"prefer_mailbox"`
	MinImageCountExtra int  `toml:"min_image_count_extra"`
}

type Render struct {
	// OffscreenWidth and OffscreenHeight override the off-screen target size.
	// Zero follows the swapchain extent.
	OffscreenWidth  int    `toml:"offscreen_width"`
	OffscreenHeight int    `toml:"offscreen_height"`
	PostProcess     bool   `toml:"post_process"`
	DebugView       uint32 `toml:"debug_view"`
	Instances       int    `toml:"instances"`
}

// Descriptors is the upper bound the descriptor pool is sized for.
type Descriptors struct {
	MaxSets               int `toml:"max_sets"`
	UniformBuffers        int `toml:"uniform_buffers"`
	CombinedImageSamplers int `toml:"combined_image_samplers"`
	StorageImages         int `toml:"storage_images"`
}

type Assets struct {
	ShaderDir string   `toml:"shader_dir"`
	Models    []string `toml:"models"`
	Texture   string   `toml:"texture"`
	// Skybox faces in +X -X +Y -Y +Z -Z order.
	Skybox []string `toml:"skybox"`
}

type Memory struct {
	BlockSize int `toml:"block_size"`
}

type Config struct {
	Validation    bool        `toml:"validation"`
	LogLevel      string      `toml:"log_level"`
	StatsInterval string      `toml:"stats_interval"`
	Window        Window      `toml:"window"`
	GPU           GPU         `toml:"gpu"`
	Swapchain     Swapchain   `toml:"swapchain"`
	Render        Render      `toml:"render"`
	Descriptors   Descriptors `toml:"descriptors"`
	Assets        Assets      `toml:"assets"`
	Memory        Memory      `toml:"memory"`
}

func Default() Config {
	return Config{
		Validation:    false,
		LogLevel:      "info",
		StatsInterval: "5s",
		Window: Window{
			Width:     1280,
			Height:    720,
			Title:     "scenedemo",
			Resizable: true,
		},
		GPU: GPU{
			PreferDiscrete: true,
			DeviceIndex:    -1,
		},
		Swapchain: Swapchain{
			PreferMailbox:      true,
			MinImageCountExtra: 1,
		},
		Render: Render{
			Instances: 4,
		},
		Descriptors: Descriptors{
			MaxSets:               8,
			UniformBuffers:        8,
			CombinedImageSamplers: 16,
			StorageImages:         2,
		},
		Assets: Assets{
			ShaderDir: "shaders",
		},
		Memory: Memory{
			BlockSize: 32 << 20,
		},
	}
}

// Load overlays the TOML file at path on the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	return cfg, cfg.Validate()
}

// ApplyArgs treats positional arguments as model names.
func (c *Config) ApplyArgs(args []string) {
	if len(args) > 0 {
		c.Assets.Models = append([]string(nil), args...)
	}
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Render.OffscreenWidth < 0 || c.Render.OffscreenHeight < 0 {
		return errors.New("offscreen size cannot be negative")
	}
	if (c.Render.OffscreenWidth == 0) != (c.Render.OffscreenHeight == 0) {
		return errors.New("offscreen_width and offscreen_height must be set together")
	}
	if c.Render.Instances < 1 {
		return errors.Newf("render.instances must be at least 1, got %d", c.Render.Instances)
	}
	if c.Swapchain.MinImageCountExtra < 0 {
		return errors.New("swapchain.min_image_count_extra cannot be negative")
	}
	if c.Descriptors.MaxSets <= 0 {
		return errors.New("descriptors.max_sets must be positive")
	}
	if len(c.Assets.Skybox) != 0 && len(c.Assets.Skybox) != 6 {
		return errors.Newf("assets.skybox needs 6 faces, got %d", len(c.Assets.Skybox))
	}
	if c.Memory.BlockSize <= 0 {
		return errors.New("memory.block_size must be positive")
	}
	if _, err := c.StatsPeriod(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c Config) StatsPeriod() (time.Duration, error) {
	if c.StatsInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.StatsInterval)
	if err != nil {
		return 0, errors.Wrap(err, "stats_interval")
	}
	return d, nil
}

func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Newf("unknown log_level %q", c.LogLevel)
}
