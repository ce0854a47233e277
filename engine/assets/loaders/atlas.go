package loaders

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/resources"
)

type atlasDescriptor struct {
	ID       string                  `json:"id"`
	Textures []string                `json:"textures"`
	Regions  []resources.AtlasRegion `json:"regions"`
}

// AtlasPath is where the descriptor of atlas id lives inside folder.
func AtlasPath(folder, id string) string {
	return path.Join(folder, id+".json")
}

// LoadAtlasDescriptor reads the descriptor of atlas id. Textures are not
// loaded. A missing file is ErrResourceNotFound.
func LoadAtlasDescriptor(fm FileManager, folder, id string) (*resources.TextureAtlas, error) {
	p := AtlasPath(folder, id)
	if !fm.Exists(p) {
		return nil, fmt.Errorf("%w: atlas %s at %s", core.ErrResourceNotFound, id, p)
	}
	data, err := fm.ReadBytes(p)
	if err != nil {
		return nil, err
	}
	return ParseAtlasDescriptor(id, data)
}

func ParseAtlasDescriptor(id string, data []byte) (*resources.TextureAtlas, error) {
	var desc atlasDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("atlas %s: %w", id, err)
	}
	if len(desc.Textures) == 0 {
		return nil, fmt.Errorf("atlas %s: no textures", id)
	}
	atlas := &resources.TextureAtlas{
		ID:           id,
		TexturePaths: desc.Textures,
		Regions:      make(map[string]resources.AtlasRegion, len(desc.Regions)),
	}
	for _, r := range desc.Regions {
		if r.Texture < 0 || r.Texture >= len(desc.Textures) {
			return nil, fmt.Errorf("atlas %s: region %s references texture %d", id, r.Name, r.Texture)
		}
		atlas.Regions[r.Name] = r
	}
	return atlas, nil
}

// WriteAtlasDescriptor is the inverse of LoadAtlasDescriptor.
func WriteAtlasDescriptor(fm FileManager, folder string, atlas *resources.TextureAtlas) error {
	desc := atlasDescriptor{ID: atlas.ID, Textures: atlas.TexturePaths}
	for _, name := range atlas.RegionNames() {
		desc.Regions = append(desc.Regions, atlas.Regions[name])
	}
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return err
	}
	return fm.WriteBytes(AtlasPath(folder, atlas.ID), data)
}
