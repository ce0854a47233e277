package testbed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/systems"
)

type TestGame struct {
	*engine.Game

	// Called once content is loaded when the game should not keep running.
	Stop func()
	// Directory of uncompiled effect sources.
	ShaderSourceDir string
}

type gameState struct {
	DeltaTime float64
	Frames    uint64
	World     *assets.WorldAsset

	exitWhenLoaded bool
}

func NewTestGame(exitWhenLoaded bool) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Name: "Anima Testbed",
			State: &gameState{
				exitWhenLoaded: exitWhenLoaded,
			},
		},
	}

	tg.FnLoadContentAsync = tg.LoadContentAsync
	tg.FnCompileShader = tg.CompileShader
	tg.FnOnContentLoaded = tg.OnContentLoaded
	tg.FnUpdate = tg.Update

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// LoadContentAsync registers the world the testbed plays in. It runs on the
// background loader.
func (g *TestGame) LoadContentAsync(data *systems.GameDataManager) error {
	world := &assets.WorldAsset{
		AssetHeader: assets.AssetHeader{
			GUID:     core.NewIdentifier(),
			Name:     "testbed_world",
			FilePath: "worlds/testbed.toml",
		},
		Groups: map[string][]uuid.UUID{},
	}
	for _, s := range assets.All[*assets.SpriteAsset](data.Registry) {
		world.MoveToGroup("sprites", s.GUID)
	}
	if err := data.Registry.Add(world, true); err != nil {
		return err
	}
	g.state().World = world
	return nil
}

// CompileShader reads the effect source of name. The headless device accepts
// the technique listing of a source as is.
func (g *TestGame) CompileShader(name string) ([]byte, error) {
	if g.ShaderSourceDir == "" {
		return nil, fmt.Errorf("no shader sources configured for %s", name)
	}
	return os.ReadFile(filepath.Join(g.ShaderSourceDir, name+".fx"))
}

func (g *TestGame) OnContentLoaded(data *systems.GameDataManager) error {
	core.LogInfo("%d assets, %d fonts, %d textures, atlases %v",
		data.Registry.Len(), len(data.Fonts().Fonts()), data.Textures().Count(), data.ReferencedAtlases())
	if loc := data.Localization().Current(); loc != nil {
		core.LogInfo("language %s: %s", data.Localization().Language(), loc.Name)
	}
	if g.state().exitWhenLoaded && g.Stop != nil {
		g.Stop()
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	s.DeltaTime = deltaTime
	s.Frames++
	return nil
}
