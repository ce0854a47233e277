package systems

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/remeh/sizedwaitgroup"
	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

type ContentStage int32

const (
	StageUninitialized ContentStage = iota
	StagePreloading
	StageBackgroundLoading
	StageReadyForMainThreadFinalize
	StageComplete
	StageFailed
)

func (s ContentStage) String() string {
	switch s {
	case StageUninitialized:
		return "uninitialized"
	case StagePreloading:
		return "preloading"
	case StageBackgroundLoading:
		return "background loading"
	case StageReadyForMainThreadFinalize:
		return "ready for main thread finalize"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// ContentOutcome is the single terminal result of a background stage.
type ContentOutcome struct {
	Err     error
	Metrics *core.LoadMetrics
}

func (m *GameDataManager) Stage() ContentStage {
	return ContentStage(m.stage.Load())
}

func (m *GameDataManager) Metrics() *core.LoadMetrics {
	return m.metrics
}

// LoadContent runs the preload stage on the calling thread and starts the
// background stage. When it returns without error the preload content is
// registered and its atlases are on the device.
func (m *GameDataManager) LoadContent(ctx context.Context) error {
	switch s := m.Stage(); s {
	case StagePreloading, StageBackgroundLoading, StageReadyForMainThreadFinalize:
		return fmt.Errorf("%w: content is %s", core.ErrInvalidState, s)
	}
	m.bg.Wait()

	m.metrics = core.NewLoadMetrics()
	m.outcome = nil
	m.ready = make(chan ContentOutcome, 1)
	m.stage.Store(int32(StagePreloading))

	m.Registry.Clear()
	m.fontSystem.Reset()
	m.localizationSystem.Reset()
	m.refMu.Lock()
	m.referencedAtlases = make(map[string]struct{})
	m.refMu.Unlock()

	if err := m.initShaders(); err != nil {
		m.stage.Store(int32(StageFailed))
		return err
	}
	if err := m.preloadContent(); err != nil {
		m.stage.Store(int32(StageFailed))
		return err
	}

	m.stage.Store(int32(StageBackgroundLoading))
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		done := m.metrics.Stage("background")
		err := m.loadContentInBackground(context.WithoutCancel(ctx))
		done()
		if err != nil {
			core.LogError("background content loading failed: %s", err)
			m.stage.Store(int32(StageFailed))
		} else {
			m.stage.Store(int32(StageReadyForMainThreadFinalize))
		}
		m.ready <- ContentOutcome{Err: err, Metrics: m.metrics}
	}()
	return nil
}

func (m *GameDataManager) initShaders() error {
	if m.hooks.InitShaders != nil {
		return m.hooks.InitShaders(m)
	}
	for _, name := range m.Profile().Shaders {
		if _, err := m.shaderSystem.LoadShader(name, false, false); err != nil {
			return err
		}
	}
	return nil
}

func (m *GameDataManager) preloadContent() error {
	defer m.metrics.Stage("preload")()

	profile := m.Profile()
	blob := loaders.LoadPackedBlob[loaders.PackedArchive](m.packedFM, profile.PreloadArchive)
	if opt.IsNone(blob) {
		return fmt.Errorf("%w: preload archive %s", core.ErrConfigurationMissing, m.packedFM.Resolve(profile.PreloadArchive))
	}

	records := blob.Value.Records
	decoded := loaders.DecodeRecords(records)
	m.metrics.Skipped.Add(int64(len(records) - len(decoded)))
	for _, a := range decoded {
		if !m.register(a) {
			continue
		}
		if s, ok := a.(*assets.SpriteAsset); ok && s.Atlas != "" {
			if err := m.atlasSystem.LoadAtlasTextures(s.Atlas); err != nil {
				core.LogWarn("sprite %s: %s", s.Name, err)
			}
		}
	}
	return nil
}

// decodeRecords decodes records on the job system. Failed records are
// logged with their path and skipped.
func (m *GameDataManager) decodeRecords(records []loaders.Record) []assets.Asset {
	decoded := make([]assets.Asset, len(records))
	tasks := make([]JobTask, len(records))
	for i, r := range records {
		i, r := i, r
		tasks[i] = JobTask{
			OnStart: func() error {
				a, err := loaders.DecodeRecord(r)
				if err != nil {
					return err
				}
				decoded[i] = a
				return nil
			},
			OnFailure: func(err error) {
				m.metrics.Skipped.Add(1)
				core.LogWarn("skipping asset %s (%s) at %s: %s", r.GUID, r.Kind, r.Path, err)
			},
		}
	}
	m.jobSystem.RunAll(tasks)

	out := decoded[:0]
	for _, a := range decoded {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// register adds a to the registry, counting the outcome.
func (m *GameDataManager) register(a assets.Asset) bool {
	if err := m.Registry.Add(a, false); err != nil {
		if errors.Is(err, core.ErrDuplicateAsset) {
			m.metrics.Duplicates.Add(1)
		} else {
			m.metrics.Skipped.Add(1)
		}
		return false
	}
	m.metrics.Registered.Add(1)
	return true
}

func (m *GameDataManager) referenceAtlas(id string) {
	if id == "" {
		return
	}
	m.refMu.Lock()
	m.referencedAtlases[id] = struct{}{}
	m.refMu.Unlock()
}

// loadContentInBackground performs no device calls.
func (m *GameDataManager) loadContentInBackground(ctx context.Context) error {
	m.loadSounds()

	if m.hooks.LoadContentAsync != nil {
		done := m.metrics.Stage("game")
		err := m.hooks.LoadContentAsync(m)
		done()
		if err != nil {
			return fmt.Errorf("game content: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.loadFullArchive(gctx) })
	g.Go(func() error { return m.loadFontsAndTextures(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	m.loadSaveData()
	return m.activatePreferredLanguage()
}

func (m *GameDataManager) loadSounds() {
	defer m.metrics.Stage("sounds")()
	sounds, err := loaders.LoadSoundManifest(m.packedFM, m.Profile().SoundManifest)
	if err != nil {
		core.LogWarn("no sounds loaded: %s", err)
		return
	}
	for _, s := range sounds {
		m.register(s)
	}
}

func (m *GameDataManager) loadFullArchive(ctx context.Context) error {
	defer m.metrics.Stage("archive")()

	profile := m.Profile()
	if !m.packedFM.Exists(profile.FullArchive) {
		core.LogWarn("full archive %s is missing, continuing with preloaded content", profile.FullArchive)
		return nil
	}
	var read loaders.FetchResult
	select {
	case read = <-m.packedFM.ReadBytesAsync(ctx, profile.FullArchive):
	case <-ctx.Done():
		return ctx.Err()
	}
	if read.Err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		core.LogWarn("failed to read full archive %s, continuing with preloaded content: %s", profile.FullArchive, read.Err)
		return nil
	}
	blob := loaders.DecodePackedBlob[loaders.PackedArchive](profile.FullArchive, read.Data)
	if opt.IsNone(blob) {
		core.LogWarn("full archive %s is unreadable, continuing with preloaded content", profile.FullArchive)
		return nil
	}

	for _, a := range m.decodeRecords(blob.Value.Records) {
		if !m.register(a) {
			continue
		}
		switch v := a.(type) {
		case *assets.FontAsset:
			if _, err := m.fontSystem.LoadFont(path.Join(profile.FontFolder, v.File), v.Index); err != nil {
				core.LogWarn("font %s: %s", v.Name, err)
			}
			m.referenceAtlas(v.Atlas)
		case *assets.SpriteAsset:
			m.referenceAtlas(v.Atlas)
		}
	}
	return m.loadLooseAssets(ctx)
}

// loadLooseAssets applies standalone asset files over what the archives
// registered. They are read concurrently and registered in path order.
func (m *GameDataManager) loadLooseAssets(ctx context.Context) error {
	pattern := m.Profile().LooseAssets
	if pattern == "" {
		return nil
	}
	files, err := m.packedFM.Glob(pattern)
	if err != nil {
		core.LogWarn("loose assets %s: %s", pattern, err)
		return nil
	}
	pending := make([]<-chan loaders.AssetResult, len(files))
	for i, f := range files {
		pending[i] = m.packedFM.DeserializeAssetAsync(ctx, f)
	}
	for i, ch := range pending {
		var res loaders.AssetResult
		select {
		case res = <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		if res.Err != nil {
			m.metrics.Skipped.Add(1)
			core.LogWarn("skipping loose asset %s: %s", files[i], res.Err)
			continue
		}
		if err := m.Registry.Add(res.Asset, true); err != nil {
			m.metrics.Skipped.Add(1)
			core.LogWarn("skipping loose asset %s: %s", files[i], err)
			continue
		}
		m.metrics.Registered.Add(1)
		if s, ok := res.Asset.(*assets.SpriteAsset); ok {
			m.referenceAtlas(s.Atlas)
		}
	}
	return nil
}

func (m *GameDataManager) loadFontsAndTextures(ctx context.Context) error {
	defer m.metrics.Stage("fonts")()

	profile := m.Profile()
	for _, f := range profile.Fonts {
		if _, err := m.fontSystem.LoadFont(path.Join(profile.FontFolder, f.File), f.Index); err != nil {
			core.LogWarn("profile font %d: %s", f.Index, err)
		}
	}

	swg := sizedwaitgroup.New(m.config.LoaderWorkers)
	for _, name := range profile.PreloadTextures {
		if err := swg.AddWithContext(ctx); err != nil {
			swg.Wait()
			return err
		}
		go func(name string) {
			defer swg.Done()
			if _, err := m.textureSystem.PrepareTexture(path.Join(profile.TextureFolder, name)); err != nil {
				core.LogWarn("texture %s: %s", name, err)
			}
		}(name)
	}
	swg.Wait()
	return nil
}

func (m *GameDataManager) loadSaveData() {
	defer m.metrics.Stage("saves")()
	saves, err := loaders.LoadSaveSlots(m.saveFM, ".")
	if err != nil {
		core.LogWarn("no save data loaded: %s", err)
		return
	}
	for _, s := range saves {
		m.register(s)
	}
}

func (m *GameDataManager) activatePreferredLanguage() error {
	lang := m.localizationSystem.DefaultLanguage()
	if pref := m.Preferences().Language; pref != "" {
		if tag, err := language.Parse(pref); err == nil {
			lang = tag
		} else {
			core.LogWarn("ignoring language preference %q: %s", pref, err)
		}
	}
	return m.localizationSystem.activate(lang)
}

// PollReady reports whether the background stage has finished, and with
// which error. It never blocks.
func (m *GameDataManager) PollReady() (bool, error) {
	if m.outcome != nil {
		return true, m.outcome.Err
	}
	if m.ready == nil {
		return false, nil
	}
	select {
	case o := <-m.ready:
		m.outcome = &o
		return true, o.Err
	default:
		return false, nil
	}
}

// Wait blocks until the background stage has finished or ctx is done.
func (m *GameDataManager) Wait(ctx context.Context) error {
	if m.outcome != nil {
		return m.outcome.Err
	}
	if m.ready == nil {
		return fmt.Errorf("%w: content loading was not started", core.ErrInvalidState)
	}
	select {
	case o := <-m.ready:
		m.outcome = &o
		return o.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterContentLoadedFromMainThread uploads font pages and every atlas
// referenced by the loaded fonts and sprites. It must run on the thread that
// owns the device, once the background stage is ready.
func (m *GameDataManager) AfterContentLoadedFromMainThread() error {
	ready, err := m.PollReady()
	if !ready || m.Stage() != StageReadyForMainThreadFinalize {
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: content is %s", core.ErrInvalidState, m.Stage())
	}
	defer m.metrics.Stage("finalize")()

	if err := m.fontSystem.PreloadFontTextures(m.textureSystem); err != nil {
		core.LogWarn("font textures: %s", err)
	}

	m.refMu.Lock()
	ids := make([]string, 0, len(m.referencedAtlases))
	for id := range m.referencedAtlases {
		ids = append(ids, id)
	}
	m.refMu.Unlock()
	for _, id := range ids {
		if err := m.atlasSystem.LoadAtlasTextures(id); err != nil {
			core.LogWarn("atlas %s: %s", id, err)
		}
	}

	m.stage.Store(int32(StageComplete))
	core.LogInfo("content loaded: %s", m.metrics)
	m.Events.Fire(core.EventContext{Code: core.EventCodeContentLoaded, Sender: m, Data: m.metrics})
	return nil
}

// ReferencedAtlases lists the atlases seen on fonts and sprites during the
// last full load.
func (m *GameDataManager) ReferencedAtlases() []string {
	m.refMu.Lock()
	defer m.refMu.Unlock()
	ids := make([]string, 0, len(m.referencedAtlases))
	for id := range m.referencedAtlases {
		ids = append(ids, id)
	}
	return ids
}
