package renderer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima/engine/resources"
)

// HeadlessDevice is a Device that keeps nothing on a GPU. It hands out
// handles and counts the live ones, which makes it usable for tools and tests.
type HeadlessDevice struct {
	mu         sync.Mutex
	nextHandle resources.Handle
	textures   map[resources.Handle]string
	effects    map[resources.Handle]string

	TexturesCreated   int
	TexturesDestroyed int
}

func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{
		textures: make(map[resources.Handle]string),
		effects:  make(map[resources.Handle]string),
	}
}

func (d *HeadlessDevice) handle() resources.Handle {
	d.nextHandle++
	return d.nextHandle
}

func (d *HeadlessDevice) CreateTexture(texture *resources.Texture) (resources.Handle, error) {
	if texture == nil || texture.Image == nil {
		return resources.InvalidHandle, errors.New("texture has no pixels")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.handle()
	d.textures[h] = texture.Name
	d.TexturesCreated++
	return h, nil
}

func (d *HeadlessDevice) DestroyTexture(handle resources.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[handle]; !ok {
		return
	}
	delete(d.textures, handle)
	d.TexturesDestroyed++
}

// CreateEffect accepts any non-empty bytecode. Lines of the form
// "technique <name>" declare the techniques of the effect.
func (d *HeadlessDevice) CreateEffect(name string, bytecode []byte) (*resources.Effect, error) {
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("effect %s: empty bytecode", name)
	}
	effect := &resources.Effect{Name: name}
	scanner := bufio.NewScanner(bytes.NewReader(bytecode))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if t, ok := strings.CutPrefix(line, "technique "); ok {
			effect.Techniques = append(effect.Techniques, strings.TrimSpace(t))
		}
	}
	if len(effect.Techniques) > 0 {
		effect.CurrentTechnique = effect.Techniques[0]
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	effect.Handle = d.handle()
	d.effects[effect.Handle] = name
	return effect, nil
}

func (d *HeadlessDevice) DestroyEffect(effect *resources.Effect) {
	if effect == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.effects, effect.Handle)
}

func (d *HeadlessDevice) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

func (d *HeadlessDevice) LiveEffects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.effects)
}
