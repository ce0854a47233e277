package assets

import (
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// SpriteAsset is a sequence of frames cut from a texture atlas.
type SpriteAsset struct {
	AssetHeader
	Atlas  string   `cbor:"atlas" toml:"atlas"`
	Frames []string `cbor:"frames" toml:"frames"`
	// Frames per second; zero means a still image.
	FrameRate float32 `cbor:"fps,omitempty" toml:"fps"`
}

func (*SpriteAsset) Kind() Kind { return KindSprite }

// FontAsset points at a font file and gives it a numeric index the text
// renderer refers to.
type FontAsset struct {
	AssetHeader
	Index int    `cbor:"index" toml:"index"`
	File  string `cbor:"file" toml:"file"`
	// Optional atlas holding pre-rendered glyph pages.
	Atlas string `cbor:"atlas,omitempty" toml:"atlas"`
}

func (*FontAsset) Kind() Kind { return KindFont }

type LocalizationAsset struct {
	AssetHeader
	Language string            `cbor:"language" toml:"language"`
	Strings  map[string]string `cbor:"strings" toml:"strings"`
}

func (*LocalizationAsset) Kind() Kind { return KindLocalization }

// Get returns the string for key, or the key itself when missing.
func (l *LocalizationAsset) Get(key string) string {
	if s, ok := l.Strings[key]; ok {
		return s
	}
	return key
}

// WorldAsset organises entity GUIDs into named groups.
type WorldAsset struct {
	AssetHeader
	Groups map[string][]uuid.UUID `cbor:"groups" toml:"groups"`
}

func (*WorldAsset) Kind() Kind { return KindWorld }

// OnLoadError drops whatever groups made it through a failed decode.
func (w *WorldAsset) OnLoadError(err error) {
	w.Groups = nil
}

// GroupNames returns the group names in sorted order.
func (w *WorldAsset) GroupNames() []string {
	names := make([]string, 0, len(w.Groups))
	for name := range w.Groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MoveToGroup places entity in group, removing it from any other group.
func (w *WorldAsset) MoveToGroup(group string, entity uuid.UUID) {
	w.RemoveFromGroups(entity)
	if w.Groups == nil {
		w.Groups = make(map[string][]uuid.UUID)
	}
	w.Groups[group] = append(w.Groups[group], entity)
}

func (w *WorldAsset) RemoveFromGroups(entity uuid.UUID) {
	for name, members := range w.Groups {
		w.Groups[name] = slices.DeleteFunc(members, func(id uuid.UUID) bool { return id == entity })
	}
}

// SaveDataAsset is one save slot. It lives next to the user's save files,
// so FilePath is absolute.
type SaveDataAsset struct {
	AssetHeader
	Slot     int            `cbor:"slot" toml:"slot" yaml:"slot"`
	Language string         `cbor:"language" toml:"language" yaml:"language"`
	Progress map[string]int `cbor:"progress" toml:"progress" yaml:"progress"`
}

func (*SaveDataAsset) Kind() Kind { return KindSaveData }

type SoundAsset struct {
	AssetHeader
	Event  string  `cbor:"event" toml:"event" yaml:"event"`
	File   string  `cbor:"file" toml:"file" yaml:"file"`
	Volume float32 `cbor:"volume" toml:"volume" yaml:"volume"`
	Loop   bool    `cbor:"loop,omitempty" toml:"loop" yaml:"loop"`
}

func (*SoundAsset) Kind() Kind { return KindSound }
