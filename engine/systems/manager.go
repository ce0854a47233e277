package systems

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/containers"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"golang.org/x/text/language"
)

type GameDataManagerConfig struct {
	/** @brief Directory holding the game profile. */
	ResourcesDir string
	/** @brief Directory holding archives, atlases, textures, fonts and shaders. */
	PackedDir string
	/** @brief Directory holding preferences and save slots. */
	SaveDir string
	/** @brief Workers decoding archive records in the background stage. */
	LoaderWorkers int
	/** @brief Capacity hint for the texture cache. */
	MaxTextureCount uint32
	/** @brief Size of the pending hot reload queue. */
	MaxPendingReloads int
}

// GameHooks are the extension points a game plugs into content loading.
type GameHooks struct {
	// Runs on the main thread at the start of LoadContent. Defaults to
	// loading every shader named by the game profile.
	InitShaders func(m *GameDataManager) error
	// Runs in the background stage after sounds and before the archive.
	LoadContentAsync func(m *GameDataManager) error
	// Builds shader bytecode when no precompiled file is usable.
	CompileShader ShaderCompiler
}

// GameDataManager owns the asset registry and every resource system, and
// drives content loading.
type GameDataManager struct {
	config *GameDataManagerConfig
	hooks  GameHooks

	Registry *assets.Registry
	Events   *core.EventBus

	resourcesFM loaders.FileManager
	packedFM    loaders.FileManager
	saveFM      loaders.FileManager

	device             renderer.Device
	jobSystem          *JobSystem
	textureSystem      *TextureSystem
	atlasSystem        *AtlasSystem
	fontSystem         *FontSystem
	shaderSystem       *ShaderSystem
	localizationSystem *LocalizationSystem

	profileMu   sync.RWMutex
	profile     *loaders.GameProfile
	preferences *loaders.Preferences

	stage   atomic.Int32
	ready   chan ContentOutcome
	outcome *ContentOutcome
	metrics *core.LoadMetrics
	bg      sync.WaitGroup

	refMu             sync.Mutex
	referencedAtlases map[string]struct{}

	reloads *containers.RingQueue[assets.FileChange]
	watcher *assets.Watcher
}

func NewGameDataManager(config *GameDataManagerConfig, device renderer.Device, hooks GameHooks) (*GameDataManager, error) {
	if config.LoaderWorkers <= 0 {
		config.LoaderWorkers = 1
	}
	if config.MaxTextureCount == 0 {
		config.MaxTextureCount = 1024
	}
	if config.MaxPendingReloads <= 0 {
		config.MaxPendingReloads = 256
	}

	m := &GameDataManager{
		config:            config,
		hooks:             hooks,
		Registry:          assets.NewRegistry(),
		Events:            core.NewEventBus(),
		device:            device,
		profile:           loaders.DefaultGameProfile(),
		preferences:       loaders.DefaultPreferences(),
		referencedAtlases: make(map[string]struct{}),
		reloads:           containers.NewRingQueue[assets.FileChange](config.MaxPendingReloads),
	}
	m.setPaths()

	js, err := NewJobSystem(config.LoaderWorkers, config.LoaderWorkers*4)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.MaxTextureCount,
	}, m.packedFM, device)
	if err != nil {
		return nil, err
	}
	as, err := NewAtlasSystem(&AtlasSystemConfig{
		AtlasFolder: m.profile.AtlasFolder,
	}, m.packedFM, ts)
	if err != nil {
		return nil, err
	}
	fs, err := NewFontSystem(m.packedFM)
	if err != nil {
		return nil, err
	}
	ss, err := NewShaderSystem(&ShaderSystemConfig{
		PathPattern: m.profile.ShaderPathPattern,
	}, m.packedFM, device)
	if err != nil {
		return nil, err
	}
	ss.SetCompiler(hooks.CompileShader)
	ls, err := NewLocalizationSystem(m.Registry, m.profile, m, m.Events)
	if err != nil {
		return nil, err
	}

	m.jobSystem = js
	m.textureSystem = ts
	m.atlasSystem = as
	m.fontSystem = fs
	m.shaderSystem = ss
	m.localizationSystem = ls

	m.Registry.Subscribe(func(c assets.AssetChange) {
		m.Events.Fire(core.EventContext{Code: core.EventCodeAssetsChanged, Sender: m, Data: c})
	})
	return m, nil
}

func (m *GameDataManager) setPaths() {
	m.resourcesFM = loaders.NewOSFileManager(m.config.ResourcesDir)
	m.packedFM = loaders.NewOSFileManager(m.config.PackedDir)
	m.saveFM = loaders.NewOSFileManager(m.config.SaveDir)
}

// Initialize clears the registry, loads the game profile and the user
// preferences. A missing or broken profile is replaced with the default one.
func (m *GameDataManager) Initialize() error {
	if s := m.Stage(); s == StagePreloading || s == StageBackgroundLoading {
		return fmt.Errorf("%w: cannot initialize while content is %s", core.ErrInvalidState, s)
	}
	m.Registry.Clear()
	m.stage.Store(int32(StageUninitialized))

	profile, err := loaders.LoadGameProfile(m.resourcesFM, loaders.GameProfileFile)
	if err != nil {
		core.LogWarn("using the default game profile: %s", err)
		profile = loaders.DefaultGameProfile()
	}
	prefs := loaders.LoadPreferences(m.saveFM, loaders.PreferencesFile)

	m.profileMu.Lock()
	m.profile = profile
	m.preferences = prefs
	m.profileMu.Unlock()

	m.atlasSystem.SetFolder(profile.AtlasFolder)
	m.shaderSystem.SetPathPattern(profile.ShaderPathPattern)
	m.localizationSystem.SetProfile(profile)
	m.Registry.SetPlaceholder(assets.TypeOf[*assets.SpriteAsset](), profile.MissingImageGUID().Value)
	return nil
}

func (m *GameDataManager) Profile() *loaders.GameProfile {
	m.profileMu.RLock()
	defer m.profileMu.RUnlock()
	return m.profile
}

func (m *GameDataManager) Preferences() loaders.Preferences {
	m.profileMu.RLock()
	defer m.profileMu.RUnlock()
	return *m.preferences
}

// SetLanguagePreference stores lang in the user preferences file.
func (m *GameDataManager) SetLanguagePreference(lang string) error {
	m.profileMu.Lock()
	m.preferences.Language = lang
	prefs := *m.preferences
	m.profileMu.Unlock()
	return loaders.SavePreferences(m.saveFM, loaders.PreferencesFile, &prefs)
}

func (m *GameDataManager) Textures() *TextureSystem { return m.textureSystem }

func (m *GameDataManager) Atlases() *AtlasSystem { return m.atlasSystem }

func (m *GameDataManager) Fonts() *FontSystem { return m.fontSystem }

func (m *GameDataManager) Shaders() *ShaderSystem { return m.shaderSystem }

func (m *GameDataManager) Localization() *LocalizationSystem { return m.localizationSystem }

func (m *GameDataManager) PackedFiles() loaders.FileManager { return m.packedFM }

// ChangeLanguage persists lang and switches the active localization.
func (m *GameDataManager) ChangeLanguage(lang language.Tag) error {
	return m.localizationSystem.ChangeLanguage(lang)
}

// EnableHotReload watches the packed directory. Changes are queued and
// applied by ApplyPendingReloads.
func (m *GameDataManager) EnableHotReload() error {
	if m.watcher != nil {
		return nil
	}
	w, err := assets.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Watch(m.config.PackedDir); err != nil {
		w.Close()
		return err
	}
	m.watcher = w
	go func() {
		for change := range w.Events() {
			if err := m.reloads.Enqueue(change); err != nil {
				core.LogWarn("dropping reload of %s: %s", change.Path, err)
			}
		}
	}()
	return nil
}

// QueueReload adds a change to the pending reloads as if it was observed on disk.
func (m *GameDataManager) QueueReload(change assets.FileChange) error {
	return m.reloads.Enqueue(change)
}

// ApplyPendingReloads applies every queued file change. Main thread only.
// Returns the number of changes applied.
func (m *GameDataManager) ApplyPendingReloads() int {
	applied := 0
	for _, change := range m.reloads.Drain() {
		if err := m.applyReload(change); err != nil {
			core.LogWarn("hot reload of %s failed: %s", change.Path, err)
			continue
		}
		applied++
		m.Events.Fire(core.EventContext{Code: core.EventCodeAssetReloaded, Sender: m, Data: change.Path})
	}
	return applied
}

func (m *GameDataManager) applyReload(change assets.FileChange) error {
	removed := change.Op.Has(fsnotify.Remove) || change.Op.Has(fsnotify.Rename)
	name := strings.TrimSuffix(path.Base(change.Path), path.Ext(change.Path))

	switch change.Resource {
	case assets.ResourceAtlas:
		if removed {
			m.atlasSystem.DisposeAtlas(name)
			return nil
		}
		atlas, err := loaders.LoadAtlasDescriptor(m.packedFM, path.Dir(change.Path), name)
		if err != nil {
			return err
		}
		m.atlasSystem.ReplaceAtlas(name, atlas)
		return m.atlasSystem.LoadAtlasTextures(name)
	case assets.ResourceTexture:
		if removed {
			m.textureSystem.Evict(change.Path)
			return nil
		}
		// Reloaded in place: atlases and font pages keep their *Texture.
		_, err := m.textureSystem.ReloadTexture(change.Path)
		return err
	case assets.ResourceShader:
		if removed {
			return nil
		}
		_, err := m.shaderSystem.LoadShader(name, false, false)
		return err
	case assets.ResourceAsset:
		if removed {
			return nil
		}
		a, err := m.packedFM.DeserializeAsset(change.Path)
		if err != nil {
			return err
		}
		return m.Registry.Add(a, true)
	}
	return nil
}

// Shutdown waits for background loading, then releases every resource.
func (m *GameDataManager) Shutdown() error {
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
	m.bg.Wait()

	if err := m.atlasSystem.Shutdown(); err != nil {
		return err
	}
	if err := m.fontSystem.Shutdown(); err != nil {
		return err
	}
	if err := m.textureSystem.Shutdown(); err != nil {
		return err
	}
	if err := m.shaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := m.jobSystem.Shutdown(); err != nil {
		return err
	}
	m.Registry.Dispose()
	return nil
}
