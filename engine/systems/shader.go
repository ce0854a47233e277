package systems

import (
	"fmt"
	"sync"

	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/resources"
)

// ShaderCompiler builds effect bytecode from source. Games provide it.
type ShaderCompiler func(name string) ([]byte, error)

type ShaderSystemConfig struct {
	/** @brief Path of a precompiled shader, relative to the packed directory, with one %s for the name. */
	PathPattern string
}

const (
	shaderSourceFile     = "file"
	shaderSourceCompiled = "compiled"
)

// shaderResolver is one step of the LoadShader fallback chain.
type shaderResolver func(name string, forceReload bool) (*resources.Effect, error)

type ShaderSystem struct {
	Config *ShaderSystemConfig

	fm       loaders.FileManager
	device   renderer.Device
	compiler ShaderCompiler

	mu      sync.Mutex
	effects map[string]*resources.Effect
}

func NewShaderSystem(config *ShaderSystemConfig, fm loaders.FileManager, device renderer.Device) (*ShaderSystem, error) {
	if config.PathPattern == "" {
		return nil, fmt.Errorf("func NewShaderSystem - config.PathPattern must be set")
	}
	return &ShaderSystem{
		Config:  config,
		fm:      fm,
		device:  device,
		effects: make(map[string]*resources.Effect),
	}, nil
}

func (ss *ShaderSystem) SetCompiler(compiler ShaderCompiler) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.compiler = compiler
}

func (ss *ShaderSystem) SetPathPattern(pattern string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.Config.PathPattern = pattern
}

func (ss *ShaderSystem) fromFile(name string, forceReload bool) (*resources.Effect, error) {
	if forceReload {
		return nil, fmt.Errorf("precompiled shader skipped on forced reload")
	}
	ss.mu.Lock()
	pattern := ss.Config.PathPattern
	ss.mu.Unlock()
	data, err := loaders.ReadShaderBinary(ss.fm, pattern, name)
	if err != nil {
		return nil, err
	}
	effect, err := ss.device.CreateEffect(name, data)
	if err != nil {
		return nil, err
	}
	effect.Source = shaderSourceFile
	return effect, nil
}

func (ss *ShaderSystem) fromCompiler(name string, forceReload bool) (*resources.Effect, error) {
	ss.mu.Lock()
	compile := ss.compiler
	ss.mu.Unlock()
	if compile == nil {
		return nil, fmt.Errorf("no shader compiler")
	}
	data, err := compile(name)
	if err != nil {
		return nil, err
	}
	effect, err := ss.device.CreateEffect(name, data)
	if err != nil {
		return nil, err
	}
	effect.Source = shaderSourceCompiled
	return effect, nil
}

// fromStale reuses the effect previously loaded from file under the same name.
func (ss *ShaderSystem) fromStale(name string, forceReload bool) (*resources.Effect, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if e, ok := ss.effects[name]; ok && e.Source == shaderSourceFile {
		core.LogWarn("shader %s: using stale precompiled effect", name)
		return e, nil
	}
	return nil, fmt.Errorf("no stale effect")
}

// LoadShader resolves name through the precompiled file, then the compiler,
// then a stale file-loaded effect. When all fail it returns
// ErrShaderCompilation if breakOnFail is set and None otherwise. A resolved
// effect is tagged with name and switched to DefaultTechnique when it has one.
func (ss *ShaderSystem) LoadShader(name string, breakOnFail, forceReload bool) (opt.Option[*resources.Effect], error) {
	chain := []shaderResolver{ss.fromFile, ss.fromCompiler, ss.fromStale}

	var effect *resources.Effect
	var errs []error
	for _, resolve := range chain {
		e, err := resolve(name, forceReload)
		if err == nil {
			effect = e
			break
		}
		errs = append(errs, err)
	}

	if effect == nil {
		if breakOnFail {
			core.LogError("failed to load shader %s: %v", name, errs)
			return opt.None[*resources.Effect](), fmt.Errorf("%w: %s: %v", core.ErrShaderCompilation, name, errs)
		}
		core.LogWarn("failed to load shader %s: %v", name, errs)
		return opt.None[*resources.Effect](), nil
	}

	effect.Name = name
	effect.SetTechnique(resources.DefaultTechnique)

	ss.mu.Lock()
	if old, ok := ss.effects[name]; ok && old != effect {
		ss.device.DestroyEffect(old)
	}
	ss.effects[name] = effect
	ss.mu.Unlock()

	return opt.Some(effect), nil
}

// Get returns the cached effect for name.
func (ss *ShaderSystem) Get(name string) (*resources.Effect, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	e, ok := ss.effects[name]
	return e, ok
}

func (ss *ShaderSystem) Shutdown() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for name, e := range ss.effects {
		ss.device.DestroyEffect(e)
		delete(ss.effects, name)
	}
	return nil
}
