package systems

import (
	"fmt"
	"sync"

	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/resources"
	"golang.org/x/sync/singleflight"
)

type AtlasSystemConfig struct {
	/** @brief Folder, relative to the packed directory, holding <id>.json descriptors. */
	AtlasFolder string
}

// AtlasSystem is a load-once cache of texture atlases keyed by id. Nothing
// is evicted unless asked.
type AtlasSystem struct {
	Config *AtlasSystemConfig

	fm       loaders.FileManager
	textures *TextureSystem

	mu      sync.Mutex
	atlases map[string]*resources.TextureAtlas
	loading singleflight.Group
}

func NewAtlasSystem(config *AtlasSystemConfig, fm loaders.FileManager, ts *TextureSystem) (*AtlasSystem, error) {
	if config.AtlasFolder == "" {
		return nil, fmt.Errorf("func NewAtlasSystem - config.AtlasFolder must be set")
	}
	return &AtlasSystem{
		Config:   config,
		fm:       fm,
		textures: ts,
		atlases:  make(map[string]*resources.TextureAtlas),
	}, nil
}

func (as *AtlasSystem) SetFolder(folder string) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.Config.AtlasFolder = folder
}

func (as *AtlasSystem) lookup(id string) (*resources.TextureAtlas, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	a, ok := as.atlases[id]
	return a, ok
}

func (as *AtlasSystem) load(id string) (*resources.TextureAtlas, error) {
	v, err, _ := as.loading.Do(id, func() (interface{}, error) {
		if a, ok := as.lookup(id); ok {
			return a, nil
		}
		as.mu.Lock()
		folder := as.Config.AtlasFolder
		as.mu.Unlock()
		a, err := loaders.LoadAtlasDescriptor(as.fm, folder, id)
		if err != nil {
			return nil, err
		}
		as.mu.Lock()
		defer as.mu.Unlock()
		// ReplaceAtlas may have installed one while the descriptor was read.
		if existing, ok := as.atlases[id]; ok {
			return existing, nil
		}
		as.atlases[id] = a
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*resources.TextureAtlas), nil
}

// FetchAtlas returns atlas id, reading its descriptor on first use. An atlas
// that cannot be read is ErrInvalidState: callers that can live without it
// use TryFetchAtlas.
func (as *AtlasSystem) FetchAtlas(id string, warnOnError bool) (*resources.TextureAtlas, error) {
	a, err := as.load(id)
	if err != nil {
		if warnOnError {
			core.LogWarn("atlas %s is unavailable: %s", id, err)
		}
		return nil, fmt.Errorf("%w: atlas %s is required: %v", core.ErrInvalidState, id, err)
	}
	return a, nil
}

// TryFetchAtlas is FetchAtlas without the error.
func (as *AtlasSystem) TryFetchAtlas(id string) opt.Option[*resources.TextureAtlas] {
	a, err := as.load(id)
	if err != nil {
		return opt.None[*resources.TextureAtlas]()
	}
	return opt.Some(a)
}

// ReplaceAtlas installs atlas under id, disposing the atlas it supersedes.
func (as *AtlasSystem) ReplaceAtlas(id string, atlas *resources.TextureAtlas) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if old, ok := as.atlases[id]; ok && old != atlas {
		as.dispose(old)
	}
	atlas.ID = id
	as.atlases[id] = atlas
}

// caller holds as.mu. Textures are released, not evicted: another atlas or
// a font page may still hold them.
func (as *AtlasSystem) dispose(a *resources.TextureAtlas) {
	a.MarkDisposed()
	if a.Textures != nil {
		for _, p := range a.TexturePaths {
			as.textures.Release(p)
		}
	}
	a.Textures = nil
}

// DisposeAtlas removes id from the cache. Disposing an absent atlas is a no-op.
func (as *AtlasSystem) DisposeAtlas(id string) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if a, ok := as.atlases[id]; ok {
		as.dispose(a)
		delete(as.atlases, id)
	}
}

func (as *AtlasSystem) DisposeAll() {
	as.mu.Lock()
	defer as.mu.Unlock()
	for id, a := range as.atlases {
		as.dispose(a)
		delete(as.atlases, id)
	}
}

// LoadAtlasTextures fetches atlas id and uploads every texture it uses. The
// first call takes a texture reference per path; later calls only re-upload.
// Main thread only.
func (as *AtlasSystem) LoadAtlasTextures(id string) error {
	a, err := as.FetchAtlas(id, true)
	if err != nil {
		return err
	}
	as.mu.Lock()
	bound := a.Textures != nil
	as.mu.Unlock()

	fetch := as.textures.Acquire
	if bound {
		fetch = as.textures.FetchTexture
	}
	textures := make([]*resources.Texture, 0, len(a.TexturePaths))
	for _, p := range a.TexturePaths {
		t, err := fetch(p)
		if err != nil {
			if !bound {
				for _, held := range a.TexturePaths[:len(textures)] {
					as.textures.Release(held)
				}
			}
			return fmt.Errorf("atlas %s: %w", id, err)
		}
		textures = append(textures, t)
	}
	as.mu.Lock()
	a.Textures = textures
	as.mu.Unlock()
	return nil
}

func (as *AtlasSystem) IsLoaded(id string) bool {
	_, ok := as.lookup(id)
	return ok
}

// IsResident reports whether atlas id is cached with all textures uploaded.
func (as *AtlasSystem) IsResident(id string) bool {
	a, ok := as.lookup(id)
	if !ok {
		return false
	}
	for _, p := range a.TexturePaths {
		if !as.textures.IsResident(p) {
			return false
		}
	}
	return true
}

func (as *AtlasSystem) Shutdown() error {
	as.DisposeAll()
	return nil
}
