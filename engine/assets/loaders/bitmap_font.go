package loaders

import (
	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/anima/engine/resources"
)

// LoadBitmapFont imports a BMFont .fnt descriptor and its page sheets.
func LoadBitmapFont(fm FileManager, fntPath string, index int) (*resources.Font, error) {
	font, err := bmfont.Load(fm.Resolve(fntPath))
	if err != nil {
		return nil, err
	}

	out := &resources.Font{
		Index:      index,
		Type:       resources.FontTypeBitmap,
		FilePath:   fntPath,
		Face:       font.Descriptor.Info.Face,
		Size:       int(font.Descriptor.Info.Size),
		LineHeight: int(font.Descriptor.Common.LineHeight),
		Baseline:   int(font.Descriptor.Common.Base),
		AtlasSizeX: int(font.Descriptor.Common.ScaleW),
		AtlasSizeY: int(font.Descriptor.Common.ScaleH),
		GlyphCount: len(font.Descriptor.Chars),
		Pages:      make([]*resources.FontPage, 0, len(font.Descriptor.Pages)),
		Kernings:   make([]resources.FontKerning, 0, len(font.Descriptor.Kerning)),
	}

	for _, p := range font.Descriptor.Pages {
		out.Pages = append(out.Pages, &resources.FontPage{ID: int(p.ID), File: p.File})
	}
	for pair, k := range font.Descriptor.Kerning {
		out.Kernings = append(out.Kernings, resources.FontKerning{
			First:  rune(pair.First),
			Second: rune(pair.Second),
			Amount: int(k.Amount),
		})
	}
	return out, nil
}
