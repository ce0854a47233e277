package loaders

import (
	"fmt"
	"path"
	"strings"

	"github.com/spaghettifunk/anima/engine/resources"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// LoadSystemFont parses a TrueType or OpenType file.
func LoadSystemFont(fm FileManager, fontPath string, index int) (*resources.Font, error) {
	data, err := fm.ReadBytes(fontPath)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", fontPath, err)
	}
	face, err := f.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		face = strings.TrimSuffix(path.Base(fontPath), path.Ext(fontPath))
	}
	return &resources.Font{
		Index:      index,
		Type:       resources.FontTypeSystem,
		FilePath:   fontPath,
		Face:       face,
		GlyphCount: f.NumGlyphs(),
	}, nil
}

// LoadFont picks the loader by extension.
func LoadFont(fm FileManager, fontPath string, index int) (*resources.Font, error) {
	switch strings.ToLower(path.Ext(fontPath)) {
	case ".fnt":
		return LoadBitmapFont(fm, fontPath, index)
	case ".ttf", ".otf":
		return LoadSystemFont(fm, fontPath, index)
	default:
		return nil, fmt.Errorf("unsupported font file %s", fontPath)
	}
}
