package systems

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fxamacker/cbor/v2"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newManager(t *testing.T, f *contentFixture, hooks GameHooks) (*GameDataManager, *renderer.HeadlessDevice) {
	t.Helper()
	device := renderer.NewHeadlessDevice()
	m, err := NewGameDataManager(f.config, device, hooks)
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { m.Shutdown() })
	return m, device
}

func loadAll(t *testing.T, m *GameDataManager) {
	t.Helper()
	require.NoError(t, m.LoadContent(context.Background()))
	require.NoError(t, m.Wait(context.Background()))
	require.NoError(t, m.AfterContentLoadedFromMainThread())
}

func TestLoadContentPreloadIsSynchronous(t *testing.T) {
	f := newContentFixture(t)
	release := make(chan struct{})
	m, _ := newManager(t, f, GameHooks{
		LoadContentAsync: func(*GameDataManager) error {
			<-release
			return nil
		},
	})

	require.NoError(t, m.LoadContent(context.Background()))

	sprite, err := assets.Get[*assets.SpriteAsset](m.Registry, f.uiSprite.GUID)
	require.NoError(t, err)
	assert.Equal(t, "loading", sprite.Name)
	assert.True(t, m.Atlases().IsResident("ui"))
	assert.False(t, m.Atlases().IsLoaded("hud"))
	assert.Equal(t, StageBackgroundLoading, m.Stage())

	err = m.AfterContentLoadedFromMainThread()
	assert.ErrorIs(t, err, core.ErrInvalidState)
	ready, err := m.PollReady()
	assert.False(t, ready)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, m.Wait(context.Background()))
	assert.Equal(t, StageReadyForMainThreadFinalize, m.Stage())
	require.NoError(t, m.AfterContentLoadedFromMainThread())
	assert.Equal(t, StageComplete, m.Stage())
}

func TestLoadContentSkipsMalformedRecord(t *testing.T) {
	f := newContentFixture(t)
	logs := captureLogs(t)

	broken, err := cbor.Marshal("not a sprite")
	require.NoError(t, err)
	sprites := make([]*assets.SpriteAsset, 20)
	records := make([]loaders.Record, 20)
	for i := range sprites {
		sprites[i] = newSprite(fmt.Sprintf("enemy_%02d", i), "hud")
		records[i] = record(t, sprites[i])
	}
	records[7].Payload = broken

	f.writeFullArchive(t, records)
	m, device := newManager(t, f, GameHooks{})
	loadAll(t, m)

	for i, s := range sprites {
		_, ok := m.Registry.TryGet(s.GUID)
		if i == 7 {
			assert.False(t, ok, "record %d", i)
			continue
		}
		assert.True(t, ok, "record %d", i)
	}
	assert.Equal(t, 1, strings.Count(logs.String(), sprites[7].FilePath))
	assert.Equal(t, int64(21), m.Metrics().Registered.Load())
	assert.Equal(t, int64(1), m.Metrics().Skipped.Load())

	assert.ElementsMatch(t, []string{"hud"}, m.ReferencedAtlases())
	assert.True(t, m.Atlases().IsResident("hud"))
	assert.Equal(t, 2, device.LiveTextures())
}

func TestLoadContentDuplicateGUIDKeepsFirst(t *testing.T) {
	f := newContentFixture(t)
	logs := captureLogs(t)

	clash := newSprite("clash", "hud")
	clash.GUID = f.uiSprite.GUID
	f.writeFullArchive(t, []loaders.Record{record(t, clash)})
	m, _ := newManager(t, f, GameHooks{})
	loadAll(t, m)

	got, err := assets.Get[*assets.SpriteAsset](m.Registry, f.uiSprite.GUID)
	require.NoError(t, err)
	assert.Equal(t, "loading", got.Name)
	assert.Equal(t, int64(1), m.Metrics().Duplicates.Load())
	assert.Contains(t, logs.String(), clash.FilePath)
	assert.Contains(t, logs.String(), f.uiSprite.FilePath)
}

func TestLoadContentMissingPreloadArchive(t *testing.T) {
	f := newContentFixture(t)
	f.profile.PreloadArchive = "nowhere.bin"
	require.NoError(t, loaders.SaveGameProfile(loaders.NewOSFileManager(f.config.ResourcesDir), loaders.GameProfileFile, f.profile))
	m, _ := newManager(t, f, GameHooks{})

	err := m.LoadContent(context.Background())
	assert.ErrorIs(t, err, core.ErrConfigurationMissing)
	assert.Equal(t, StageFailed, m.Stage())
}

func TestLoadContentMissingFullArchiveIsNotFatal(t *testing.T) {
	f := newContentFixture(t)
	m, _ := newManager(t, f, GameHooks{})

	loadAll(t, m)
	assert.Equal(t, 2, m.Registry.Len())
	assert.Equal(t, f.english.GUID, m.Localization().Current().GUID)
}

func TestLoadContentGameHookFailure(t *testing.T) {
	f := newContentFixture(t)
	m, _ := newManager(t, f, GameHooks{
		LoadContentAsync: func(*GameDataManager) error { return fmt.Errorf("no level data") },
	})

	require.NoError(t, m.LoadContent(context.Background()))
	err := m.Wait(context.Background())
	assert.ErrorContains(t, err, "no level data")
	assert.Equal(t, StageFailed, m.Stage())
	assert.Error(t, m.AfterContentLoadedFromMainThread())
}

func TestLoadContentFiresContentLoaded(t *testing.T) {
	f := newContentFixture(t)
	m, _ := newManager(t, f, GameHooks{})
	fired := 0
	m.Events.Register(core.EventCodeContentLoaded, t, func(_ interface{}, ctx core.EventContext) bool {
		fired++
		return false
	})

	loadAll(t, m)
	assert.Equal(t, 1, fired)

	err := m.LoadContent(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Wait(context.Background()))
}

func TestChangeLanguageUnmappedLanguage(t *testing.T) {
	f := newContentFixture(t)
	m, _ := newManager(t, f, GameHooks{})
	loadAll(t, m)
	logs := captureLogs(t)

	require.NoError(t, m.ChangeLanguage(language.French))
	assert.Equal(t, f.english.GUID, m.Localization().Current().GUID)
	assert.Equal(t, language.English, m.Localization().Language())
	assert.Contains(t, logs.String(), "fr")

	prefs := loaders.LoadPreferences(loaders.NewOSFileManager(f.config.SaveDir), loaders.PreferencesFile)
	assert.Equal(t, "fr", prefs.Language)
}

func TestHotReload(t *testing.T) {
	f := newContentFixture(t)
	m, _ := newManager(t, f, GameHooks{})
	loadAll(t, m)

	reloaded := 0
	m.Events.Register(core.EventCodeAssetReloaded, t, func(_ interface{}, ctx core.EventContext) bool {
		reloaded++
		return false
	})

	before, err := m.Atlases().FetchAtlas("ui", false)
	require.NoError(t, err)

	renamed := newSprite("renamed", "ui")
	renamed.GUID = f.uiSprite.GUID
	require.NoError(t, loaders.WritePackedBlob(f.packed, "sprites/loading.asset", record(t, renamed)))

	require.NoError(t, m.QueueReload(assets.FileChange{Path: "atlas/ui.json", Resource: assets.ResourceAtlas, Op: fsnotify.Write}))
	require.NoError(t, m.QueueReload(assets.FileChange{Path: "sprites/loading.asset", Resource: assets.ResourceAsset, Op: fsnotify.Write}))
	require.NoError(t, m.QueueReload(assets.FileChange{Path: "atlas/gone.json", Resource: assets.ResourceAtlas, Op: fsnotify.Write}))

	assert.Equal(t, 2, m.ApplyPendingReloads())
	assert.Equal(t, 2, reloaded)

	after, err := m.Atlases().FetchAtlas("ui", false)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, 1, before.DisposeCount())
	assert.True(t, m.Atlases().IsResident("ui"))

	sprite, err := assets.Get[*assets.SpriteAsset](m.Registry, f.uiSprite.GUID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", sprite.Name)

	assert.Equal(t, 0, m.ApplyPendingReloads())
}

func TestHotReloadTextureKeepsAtlasBinding(t *testing.T) {
	f := newContentFixture(t)
	m, device := newManager(t, f, GameHooks{})
	loadAll(t, m)

	atlas, err := m.Atlases().FetchAtlas("ui", false)
	require.NoError(t, err)
	require.Len(t, atlas.Textures, 1)
	bound := atlas.Textures[0]
	live := device.LiveTextures()

	writeSizedPNG(t, f.packed, "atlas/ui_0.png", 8)
	require.NoError(t, m.QueueReload(assets.FileChange{Path: "atlas/ui_0.png", Resource: assets.ResourceTexture, Op: fsnotify.Write}))
	assert.Equal(t, 1, m.ApplyPendingReloads())

	assert.Same(t, bound, atlas.Textures[0])
	assert.True(t, atlas.Textures[0].Uploaded())
	assert.Equal(t, uint32(8), atlas.Textures[0].Width)
	assert.True(t, m.Atlases().IsResident("ui"))
	assert.Equal(t, live, device.LiveTextures())

	require.NoError(t, m.QueueReload(assets.FileChange{Path: "atlas/ui_0.png", Resource: assets.ResourceTexture, Op: fsnotify.Remove}))
	assert.Equal(t, 1, m.ApplyPendingReloads())
	assert.False(t, m.Atlases().IsResident("ui"))
	assert.Equal(t, live-1, device.LiveTextures())
}

func TestLoadContentAppliesLooseAssets(t *testing.T) {
	f := newContentFixture(t)
	logs := captureLogs(t)

	packed := newSprite("packed", "hud")
	f.writeFullArchive(t, []loaders.Record{record(t, packed)})

	edited := newSprite("edited", "hud")
	edited.GUID = packed.GUID
	extra := newSprite("extra", "ui")
	require.NoError(t, loaders.WritePackedBlob(f.packed, "assets/edited.asset", record(t, edited)))
	require.NoError(t, loaders.WritePackedBlob(f.packed, "assets/extra.asset", record(t, extra)))
	require.NoError(t, f.packed.WriteBytes("assets/broken.asset", []byte("not cbor")))

	m, _ := newManager(t, f, GameHooks{})
	loadAll(t, m)

	got, err := assets.Get[*assets.SpriteAsset](m.Registry, packed.GUID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Name)
	_, ok := m.Registry.TryGet(extra.GUID)
	assert.True(t, ok)
	assert.Contains(t, logs.String(), "broken.asset")
	assert.Equal(t, int64(1), m.Metrics().Skipped.Load())
	assert.Equal(t, int64(5), m.Metrics().Registered.Load())
}

func TestLoadContentOutlivesCallerContext(t *testing.T) {
	f := newContentFixture(t)
	hud := newSprite("hud_frame", "hud")
	f.writeFullArchive(t, []loaders.Record{record(t, hud)})

	release := make(chan struct{})
	m, _ := newManager(t, f, GameHooks{
		LoadContentAsync: func(*GameDataManager) error {
			<-release
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.LoadContent(ctx))
	cancel()
	close(release)

	require.NoError(t, m.Wait(context.Background()))
	require.NoError(t, m.AfterContentLoadedFromMainThread())
	_, ok := m.Registry.TryGet(hud.GUID)
	assert.True(t, ok)
	assert.True(t, m.Atlases().IsResident("hud"))
}
