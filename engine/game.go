package engine

import (
	"github.com/spaghettifunk/anima/engine/systems"
)

type Game struct {
	Name               string
	State              interface{}
	FnInitShaders      InitShaders
	FnLoadContentAsync LoadContentAsync
	FnCompileShader    systems.ShaderCompiler
	FnOnContentLoaded  OnContentLoaded
	FnUpdate           Update
}

type InitShaders func(data *systems.GameDataManager) error
type LoadContentAsync func(data *systems.GameDataManager) error
type OnContentLoaded func(data *systems.GameDataManager) error
type Update func(deltaTime float64) error

func (g *Game) hooks() systems.GameHooks {
	var hooks systems.GameHooks
	if g.FnInitShaders != nil {
		hooks.InitShaders = g.FnInitShaders
	}
	if g.FnLoadContentAsync != nil {
		hooks.LoadContentAsync = g.FnLoadContentAsync
	}
	hooks.CompileShader = g.FnCompileShader
	return hooks
}
