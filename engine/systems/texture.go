package systems

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/resources"
	"golang.org/x/sync/singleflight"
)

type TextureSystemConfig struct {
	/** @brief Capacity hint for the texture table. Exceeding it only logs a warning. */
	MaxTextureCount uint32
}

// TextureSystem caches textures by logical path. Decoding a key happens at
// most once at a time; uploads go through the device and belong on the main
// thread. Owners that share a texture hold it through Acquire and Release;
// the handle is destroyed when the last reference goes.
type TextureSystem struct {
	Config *TextureSystemConfig

	fm     loaders.FileManager
	device renderer.Device

	mu sync.RWMutex
	// Hashtable for texture lookups.
	registeredTextureTable map[string]*resources.Texture
	refs                   map[string]int
	loading                singleflight.Group
}

func NewTextureSystem(config *TextureSystemConfig, fm loaders.FileManager, device renderer.Device) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &TextureSystem{
		Config:                 config,
		fm:                     fm,
		device:                 device,
		registeredTextureTable: make(map[string]*resources.Texture, config.MaxTextureCount),
		refs:                   make(map[string]int),
	}, nil
}

func textureKey(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func (ts *TextureSystem) cached(key string) (*resources.Texture, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.registeredTextureTable[key]
	return t, ok
}

// PrepareTexture decodes the texture without touching the device. Safe to
// call from background loading.
func (ts *TextureSystem) PrepareTexture(name string) (*resources.Texture, error) {
	key := textureKey(name)
	if t, ok := ts.cached(key); ok {
		return t, nil
	}
	v, err, _ := ts.loading.Do(key, func() (interface{}, error) {
		if t, ok := ts.cached(key); ok {
			return t, nil
		}
		t, err := loaders.DecodeTexture(ts.fm, key)
		if err != nil {
			return nil, err
		}
		ts.mu.Lock()
		defer ts.mu.Unlock()
		ts.registeredTextureTable[key] = t
		if n := len(ts.registeredTextureTable); uint32(n) > ts.Config.MaxTextureCount {
			core.LogWarn("texture table holds %d textures, above the hint of %d", n, ts.Config.MaxTextureCount)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*resources.Texture), nil
}

// FetchTexture returns the texture for name, decoding and uploading it on
// first use. Main thread only.
func (ts *TextureSystem) FetchTexture(name string) (*resources.Texture, error) {
	t, err := ts.PrepareTexture(name)
	if err != nil {
		return nil, err
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !t.Uploaded() {
		h, err := ts.device.CreateTexture(t)
		if err != nil {
			return nil, fmt.Errorf("uploading texture %s: %w", t.Name, err)
		}
		t.Handle = h
	}
	return t, nil
}

// Acquire is FetchTexture plus a reference held by the caller until Release.
func (ts *TextureSystem) Acquire(name string) (*resources.Texture, error) {
	t, err := ts.FetchTexture(name)
	if err != nil {
		return nil, err
	}
	ts.mu.Lock()
	ts.refs[textureKey(name)]++
	ts.mu.Unlock()
	return t, nil
}

// Release drops one reference to name and evicts it once none are left. It
// reports whether the texture was evicted.
func (ts *TextureSystem) Release(name string) bool {
	key := textureKey(name)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if n := ts.refs[key] - 1; n > 0 {
		ts.refs[key] = n
		return false
	}
	delete(ts.refs, key)
	t, ok := ts.registeredTextureTable[key]
	if !ok {
		return false
	}
	ts.destroy(t)
	delete(ts.registeredTextureTable, key)
	return true
}

func (ts *TextureSystem) RefCount(name string) int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.refs[textureKey(name)]
}

// ReloadTexture decodes name again and swaps the pixels into the cached
// texture, so every owner holding the *Texture sees the new image. A texture
// that was on the device is re-uploaded. It reports false when name is not
// cached. Main thread only.
func (ts *TextureSystem) ReloadTexture(name string) (bool, error) {
	key := textureKey(name)
	if _, ok := ts.cached(key); !ok {
		return false, nil
	}
	fresh, err := loaders.DecodeTexture(ts.fm, key)
	if err != nil {
		return true, err
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.registeredTextureTable[key]
	if !ok {
		return false, nil
	}
	wasUploaded := t.Uploaded()
	ts.destroy(t)
	t.FilePath = fresh.FilePath
	t.Width = fresh.Width
	t.Height = fresh.Height
	t.Image = fresh.Image
	if wasUploaded {
		h, err := ts.device.CreateTexture(t)
		if err != nil {
			return true, fmt.Errorf("uploading texture %s: %w", t.Name, err)
		}
		t.Handle = h
	}
	return true, nil
}

// IsResident reports whether name is cached and uploaded.
func (ts *TextureSystem) IsResident(name string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.registeredTextureTable[textureKey(name)]
	return ok && t.Uploaded()
}

// Evict drops name from the cache whatever its references, destroying its
// device handle.
func (ts *TextureSystem) Evict(name string) bool {
	key := textureKey(name)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.refs, key)
	t, ok := ts.registeredTextureTable[key]
	if !ok {
		return false
	}
	ts.destroy(t)
	delete(ts.registeredTextureTable, key)
	return true
}

// caller holds ts.mu
func (ts *TextureSystem) destroy(t *resources.Texture) {
	if t.Uploaded() {
		ts.device.DestroyTexture(t.Handle)
		t.Handle = resources.InvalidHandle
	}
}

func (ts *TextureSystem) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.registeredTextureTable)
}

func (ts *TextureSystem) Shutdown() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	// Destroy all loaded textures.
	for key, t := range ts.registeredTextureTable {
		ts.destroy(t)
		delete(ts.registeredTextureTable, key)
	}
	clear(ts.refs)
	return nil
}
