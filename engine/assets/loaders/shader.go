package loaders

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
)

// ShaderPath expands pattern, which holds one %s for the shader name.
func ShaderPath(pattern, name string) string {
	return fmt.Sprintf(pattern, name)
}

// ReadShaderBinary reads the precompiled effect for name.
func ReadShaderBinary(fm FileManager, pattern, name string) ([]byte, error) {
	p := ShaderPath(pattern, name)
	if !fm.Exists(p) {
		return nil, fmt.Errorf("%w: shader %s at %s", core.ErrResourceNotFound, name, p)
	}
	return fm.ReadBytes(p)
}
