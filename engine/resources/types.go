package resources

import (
	"image"
	"sync/atomic"

	"golang.org/x/exp/slices"
)

/** @brief Opaque identifier of a native object owned by the graphics device. */
type Handle uint32

const InvalidHandle Handle = 0

/**
 * @brief A decoded image plus, once uploaded, the device handle backing it.
 */
type Texture struct {
	/** @brief The logical path the texture was fetched with. */
	Name string
	/** @brief The file the pixels were decoded from. */
	FilePath string
	Width    uint32
	Height   uint32
	/** @brief CPU side pixels. Dropped by the cache after upload only if the device asks for it. */
	Image image.Image
	/** @brief Device handle, InvalidHandle until uploaded. */
	Handle Handle
}

func (t *Texture) Uploaded() bool {
	return t.Handle != InvalidHandle
}

/** @brief A named sub-rectangle of one of the atlas textures. */
type AtlasRegion struct {
	Name    string `json:"name"`
	Texture int    `json:"texture"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	W       int    `json:"w"`
	H       int    `json:"h"`
}

func (r AtlasRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

/**
 * @brief An aggregate of named regions over one or more backing textures.
 */
type TextureAtlas struct {
	ID string
	/** @brief Logical texture paths, relative to the packed directory. */
	TexturePaths []string
	/** @brief Resolved textures, filled when the atlas textures are loaded. */
	Textures []*Texture
	Regions  map[string]AtlasRegion

	disposed atomic.Int32
}

func (a *TextureAtlas) Region(name string) (AtlasRegion, bool) {
	r, ok := a.Regions[name]
	return r, ok
}

// RegionNames returns region names sorted.
func (a *TextureAtlas) RegionNames() []string {
	names := make([]string, 0, len(a.Regions))
	for n := range a.Regions {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// MarkDisposed records a disposal and returns how many times the atlas has
// been disposed, this one included.
func (a *TextureAtlas) MarkDisposed() int {
	return int(a.disposed.Add(1))
}

func (a *TextureAtlas) DisposeCount() int {
	return int(a.disposed.Load())
}

type FontType int

const (
	FontTypeBitmap FontType = iota
	FontTypeSystem
)

/** @brief A page of pre-rendered glyphs for a bitmap font. */
type FontPage struct {
	ID   int
	File string
	/** @brief Set by the main-thread finalize step when the page is uploaded. */
	Texture *Texture
}

type FontKerning struct {
	First  rune
	Second rune
	Amount int
}

/**
 * @brief A loaded font, either a bitmap font with glyph pages or a system
 * font parsed from an OpenType file.
 */
type Font struct {
	Index      int
	Type       FontType
	Face       string
	FilePath   string
	Size       int
	LineHeight int
	Baseline   int
	AtlasSizeX int
	AtlasSizeY int
	GlyphCount int
	Pages      []*FontPage
	Kernings   []FontKerning
	/** @brief Optional atlas id holding the glyph pages. */
	Atlas string
}

/** @brief True once every page has a texture on the device. */
func (f *Font) PagesUploaded() bool {
	for _, p := range f.Pages {
		if p.Texture == nil || !p.Texture.Uploaded() {
			return false
		}
	}
	return true
}

const DefaultTechnique = "DefaultTechnique"

/**
 * @brief A compiled shader effect with one or more techniques.
 */
type Effect struct {
	Name             string
	Techniques       []string
	CurrentTechnique string
	/** @brief Where the effect came from: "file" or "compiled". */
	Source string
	Handle Handle
}

func (e *Effect) HasTechnique(name string) bool {
	for _, t := range e.Techniques {
		if t == name {
			return true
		}
	}
	return false
}

// SetTechnique activates name if the effect has it. Returns false otherwise.
func (e *Effect) SetTechnique(name string) bool {
	if !e.HasTechnique(name) {
		return false
	}
	e.CurrentTechnique = name
	return true
}
