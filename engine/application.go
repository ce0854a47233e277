package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/systems"
)

type ApplicationConfig struct {
	// The application name, used in logs.
	Name string `toml:"name"`
	// Directory holding the game profile.
	ResourcesDir string `toml:"resources_dir"`
	// Directory holding archives, atlases, textures, fonts and shaders.
	PackedDir string `toml:"packed_dir"`
	// Directory holding preferences and save slots.
	SaveDir string `toml:"save_dir"`
	// One of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// Target frames per second of the main loop.
	FrameRate int `toml:"frame_rate"`
	// Watch the packed directory and reload changed files.
	HotReload bool `toml:"hot_reload"`
	// Workers decoding archive records.
	LoaderWorkers int `toml:"loader_workers"`
	// Capacity hint for the texture cache.
	MaxTextureCount uint32 `toml:"max_texture_count"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:            "Anima",
		ResourcesDir:    "resources",
		PackedDir:       "packed",
		SaveDir:         "saves",
		LogLevel:        "info",
		FrameRate:       60,
		LoaderWorkers:   4,
		MaxTextureCount: 1024,
	}
}

// LoadConfig decodes the TOML file at path over DefaultConfig. Relative
// directories are resolved against the directory of the file.
func LoadConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrConfigurationMissing, path)
	}
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("func LoadConfig - %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for _, dir := range []*string{&config.ResourcesDir, &config.PackedDir, &config.SaveDir} {
		if !filepath.IsAbs(*dir) {
			*dir = filepath.Join(base, *dir)
		}
	}
	return config, nil
}

func (c *ApplicationConfig) dataManagerConfig() *systems.GameDataManagerConfig {
	return &systems.GameDataManagerConfig{
		ResourcesDir:    c.ResourcesDir,
		PackedDir:       c.PackedDir,
		SaveDir:         c.SaveDir,
		LoaderWorkers:   c.LoaderWorkers,
		MaxTextureCount: c.MaxTextureCount,
	}
}
