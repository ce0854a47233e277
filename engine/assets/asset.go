package assets

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Kind is the type discriminator stored next to every packed record.
type Kind string

const (
	KindSprite       Kind = "sprite"
	KindFont         Kind = "font"
	KindLocalization Kind = "localization"
	KindWorld        Kind = "world"
	KindSaveData     Kind = "savedata"
	KindSound        Kind = "sound"
)

// AssetHeader is the envelope shared by every asset. Header fields travel in
// the record, not in the payload.
type AssetHeader struct {
	GUID     uuid.UUID `cbor:"-" toml:"-" yaml:"-"`
	Name     string    `cbor:"-" toml:"-" yaml:"-"`
	FilePath string    `cbor:"-" toml:"-" yaml:"-"`
	// Transient assets are never registered.
	Transient bool `cbor:"-" toml:"-" yaml:"-"`
	SaveData  bool `cbor:"-" toml:"-" yaml:"-"`
}

func (h *AssetHeader) Header() *AssetHeader { return h }

func (h *AssetHeader) StoreInDatabase() bool { return !h.Transient }

func (h *AssetHeader) IsStoredInSaveData() bool { return h.SaveData }

type Asset interface {
	Header() *AssetHeader
	Kind() Kind
	StoreInDatabase() bool
	IsStoredInSaveData() bool
}

// LoadErrorHook is implemented by assets that need to clean up after a
// payload that decoded only partially.
type LoadErrorHook interface {
	OnLoadError(err error)
}

// Factory returns a zero asset of one kind, ready to receive a payload.
type Factory func() Asset

var (
	kindsMu sync.RWMutex
	kinds   = map[Kind]Factory{
		KindSprite:       func() Asset { return &SpriteAsset{} },
		KindFont:         func() Asset { return &FontAsset{} },
		KindLocalization: func() Asset { return &LocalizationAsset{} },
		KindWorld:        func() Asset { return &WorldAsset{} },
		KindSaveData:     func() Asset { return &SaveDataAsset{} },
		KindSound:        func() Asset { return &SoundAsset{} },
	}
)

// RegisterKind adds or replaces the factory for a kind. Games use it to
// make their own asset types loadable from packed archives.
func RegisterKind(kind Kind, factory Factory) {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	kinds[kind] = factory
}

// New builds an empty asset of the given kind.
func New(kind Kind) (Asset, error) {
	kindsMu.RLock()
	factory, ok := kinds[kind]
	kindsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}
	return factory(), nil
}

// TypeOf returns the concrete runtime type used to index T in a Registry.
func TypeOf[T Asset]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
