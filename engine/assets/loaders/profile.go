package loaders

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine/core"
)

const GameProfileFile = "game_profile.toml"

type ProfileFont struct {
	Index int    `toml:"index"`
	File  string `toml:"file"`
}

// GameProfile holds the engine wide settings of one game.
type GameProfile struct {
	PreloadArchive    string `toml:"preload_archive"`
	FullArchive       string `toml:"full_archive"`
	AtlasFolder       string `toml:"atlas_folder"`
	TextureFolder     string `toml:"texture_folder"`
	FontFolder        string `toml:"font_folder"`
	ShaderPathPattern string `toml:"shader_path_pattern"`
	SoundManifest     string `toml:"sound_manifest"`
	// Glob of standalone asset files applied over the full archive.
	LooseAssets string `toml:"loose_assets"`
	// GUID of the sprite shown in place of a missing one.
	MissingImage    string `toml:"missing_image"`
	DefaultLanguage string `toml:"default_language"`
	// Language tag to localization asset GUID.
	Localizations   map[string]string `toml:"localizations"`
	Fonts           []ProfileFont     `toml:"fonts"`
	PreloadTextures []string          `toml:"preload_textures"`
	Shaders         []string          `toml:"shaders"`
}

func DefaultGameProfile() *GameProfile {
	return &GameProfile{
		PreloadArchive:    "preload_resources.bin",
		FullArchive:       "resources.bin",
		AtlasFolder:       "atlas",
		TextureFolder:     "images",
		FontFolder:        "fonts",
		ShaderPathPattern: "shaders/%s.fxb",
		SoundManifest:     "sounds.yaml",
		LooseAssets:       "assets/*.asset",
		DefaultLanguage:   "en",
		Localizations:     map[string]string{},
	}
}

// LoadGameProfile decodes the profile at path over the defaults. A missing
// file is ErrConfigurationMissing.
func LoadGameProfile(fm FileManager, path string) (*GameProfile, error) {
	if !fm.Exists(path) {
		return nil, fmt.Errorf("%w: game profile %s", core.ErrConfigurationMissing, path)
	}
	data, err := fm.ReadBytes(path)
	if err != nil {
		return nil, err
	}
	profile := DefaultGameProfile()
	if err := toml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("game profile %s: %w", path, err)
	}
	if profile.Localizations == nil {
		profile.Localizations = map[string]string{}
	}
	return profile, nil
}

func SaveGameProfile(fm FileManager, path string, profile *GameProfile) error {
	data, err := toml.Marshal(profile)
	if err != nil {
		return err
	}
	return fm.WriteBytes(path, data)
}

func parseGUID(s string) opt.Option[uuid.UUID] {
	if id, ok := core.ParseIdentifier(s); ok {
		return opt.Some(id)
	}
	return opt.None[uuid.UUID]()
}

func (p *GameProfile) MissingImageGUID() opt.Option[uuid.UUID] {
	return parseGUID(p.MissingImage)
}

// LocalizationFor returns the localization GUID mapped to language.
func (p *GameProfile) LocalizationFor(language string) opt.Option[uuid.UUID] {
	return parseGUID(p.Localizations[language])
}
