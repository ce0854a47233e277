package loaders

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"gopkg.in/yaml.v3"
)

type soundEntry struct {
	GUID   string  `yaml:"guid"`
	Name   string  `yaml:"name"`
	Event  string  `yaml:"event"`
	File   string  `yaml:"file"`
	Volume float32 `yaml:"volume"`
	Loop   bool    `yaml:"loop"`
}

type soundManifest struct {
	Sounds []soundEntry `yaml:"sounds"`
}

// LoadSoundManifest reads the list of sound assets at path.
func LoadSoundManifest(fm FileManager, path string) ([]*assets.SoundAsset, error) {
	if !fm.Exists(path) {
		return nil, fmt.Errorf("%w: sound manifest %s", core.ErrResourceNotFound, path)
	}
	data, err := fm.ReadBytes(path)
	if err != nil {
		return nil, err
	}
	var manifest soundManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("sound manifest %s: %w", path, err)
	}
	out := make([]*assets.SoundAsset, 0, len(manifest.Sounds))
	for _, e := range manifest.Sounds {
		s := &assets.SoundAsset{
			AssetHeader: assets.AssetHeader{Name: e.Name, FilePath: e.File},
			Event:       e.Event,
			File:        e.File,
			Volume:      e.Volume,
			Loop:        e.Loop,
		}
		if id, ok := core.ParseIdentifier(e.GUID); ok {
			s.GUID = id
		}
		out = append(out, s)
	}
	return out, nil
}
