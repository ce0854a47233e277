package systems

import (
	"fmt"
	"path"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/resources"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type fontIndex map[int]*resources.Font

// FontSystem tracks loaded fonts by numeric index. The index is immutable:
// tracking a font publishes a new copy, so readers never lock.
type FontSystem struct {
	fm loaders.FileManager

	mu    sync.Mutex
	fonts atomic.Pointer[fontIndex]
}

func NewFontSystem(fm loaders.FileManager) (*FontSystem, error) {
	fs := &FontSystem{fm: fm}
	fs.fonts.Store(&fontIndex{})
	return fs, nil
}

// TrackFont adds font to the index. An index already in use is rejected.
func (fs *FontSystem) TrackFont(font *resources.Font) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	current := *fs.fonts.Load()
	if existing, ok := current[font.Index]; ok {
		core.LogError("font index %d is already used by %s, rejecting %s", font.Index, existing.FilePath, font.FilePath)
		return fmt.Errorf("%w: %d", core.ErrDuplicateFont, font.Index)
	}
	next := fontIndex(maps.Clone(current))
	next[font.Index] = font
	fs.fonts.Store(&next)
	return nil
}

// LoadFont loads the font file at fontPath and tracks it under index.
func (fs *FontSystem) LoadFont(fontPath string, index int) (*resources.Font, error) {
	font, err := loaders.LoadFont(fs.fm, fontPath, index)
	if err != nil {
		return nil, err
	}
	if err := fs.TrackFont(font); err != nil {
		return nil, err
	}
	return font, nil
}

func (fs *FontSystem) Font(index int) (*resources.Font, bool) {
	f, ok := (*fs.fonts.Load())[index]
	return f, ok
}

// Fonts returns every tracked font ordered by index.
func (fs *FontSystem) Fonts() []*resources.Font {
	current := *fs.fonts.Load()
	keys := maps.Keys(current)
	slices.Sort(keys)
	out := make([]*resources.Font, 0, len(keys))
	for _, k := range keys {
		out = append(out, current[k])
	}
	return out
}

// PreloadFontTextures uploads the glyph pages of every bitmap font. Each
// page holds a texture reference for as long as the texture system lives.
// Main thread only.
func (fs *FontSystem) PreloadFontTextures(ts *TextureSystem) error {
	for _, font := range fs.Fonts() {
		for _, page := range font.Pages {
			if page.Texture != nil && page.Texture.Uploaded() {
				continue
			}
			t, err := ts.Acquire(path.Join(path.Dir(font.FilePath), page.File))
			if err != nil {
				return fmt.Errorf("font %d page %d: %w", font.Index, page.ID, err)
			}
			page.Texture = t
		}
	}
	return nil
}

// Reset forgets every tracked font.
func (fs *FontSystem) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.fonts.Store(&fontIndex{})
}

func (fs *FontSystem) Shutdown() error {
	fs.Reset()
	return nil
}
