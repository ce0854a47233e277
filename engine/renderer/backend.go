package renderer

import "github.com/spaghettifunk/anima/engine/resources"

// Device is the part of a graphics backend the content pipeline needs. Every
// call must be made from the thread that owns the graphics context.
type Device interface {
	CreateTexture(texture *resources.Texture) (resources.Handle, error)
	DestroyTexture(handle resources.Handle)
	CreateEffect(name string, bytecode []byte) (*resources.Effect, error)
	DestroyEffect(effect *resources.Effect)
}
