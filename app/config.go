package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the renderer's startup configuration. Zero values are filled
// from DefaultConfig, so a partial TOML file only overrides what it names.
type Config struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`

	Fov            float32 `toml:"fov"`
	AttenuationK   float32 `toml:"attenuation_k"`
	FramesInFlight int     `toml:"frames_in_flight"`

	ObjectCapacity int `toml:"object_capacity"`
	LightCapacity  int `toml:"light_capacity"`

	Overlay   bool   `toml:"overlay"`
	ShaderDir string `toml:"shader_dir"`
	Debug     bool   `toml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Title:          "Rusty Renderer",
		Width:          1000,
		Height:         600,
		Fov:            1.2,
		AttenuationK:   16,
		FramesInFlight: 2,
		ObjectCapacity: 10000,
		LightCapacity:  1000,
	}
}

// LoadConfig reads a TOML config over the defaults. A missing file is not an
// error; the defaults apply unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window size %dx%d is not positive", c.Width, c.Height)
	}
	if c.Fov <= 0 || c.Fov >= 3.14 {
		return fmt.Errorf("fov %g out of range (0, pi)", c.Fov)
	}
	if c.FramesInFlight < 2 || c.FramesInFlight > 3 {
		return fmt.Errorf("frames_in_flight %d must be 2 or 3", c.FramesInFlight)
	}
	if c.ObjectCapacity < 1 || c.LightCapacity < 1 {
		return fmt.Errorf("capacities must be positive, got %d objects, %d lights", c.ObjectCapacity, c.LightCapacity)
	}
	return nil
}
