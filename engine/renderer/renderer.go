package renderer

import (
	"sync/atomic"

	"github.com/spaghettifunk/anima/engine/core"
)

type RendererType uint8

const (
	RendererTypeHeadless RendererType = iota
)

// Renderer is the frontend the frame loop talks to. Content systems only
// ever see its Device.
type Renderer struct {
	rendererType RendererType
	device       Device
	frame        atomic.Uint64
}

func New(rendererType RendererType) *Renderer {
	var device Device
	switch rendererType {
	default:
		device = NewHeadlessDevice()
	}
	return &Renderer{rendererType: rendererType, device: device}
}

// NewWithDevice wraps an externally created device.
func NewWithDevice(device Device) *Renderer {
	return &Renderer{device: device}
}

func (r *Renderer) Device() Device {
	return r.device
}

func (r *Renderer) BeginFrame(deltaTime float64) error {
	r.frame.Add(1)
	return nil
}

func (r *Renderer) EndFrame(deltaTime float64) error {
	return nil
}

func (r *Renderer) Frame() uint64 {
	return r.frame.Load()
}

func (r *Renderer) Shutdown() error {
	if h, ok := r.device.(*HeadlessDevice); ok {
		if n := h.LiveTextures(); n > 0 {
			core.LogWarn("renderer shut down with %d live textures", n)
		}
	}
	return nil
}
