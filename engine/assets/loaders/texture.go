package loaders

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path"
	"strings"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/resources"
	"golang.org/x/image/bmp"
)

type textureFormat struct {
	extension string
	decode    func(data []byte) (image.Image, error)
}

// Supported formats, in order of priority when looked up.
var textureFormats = []textureFormat{
	{".png", func(data []byte) (image.Image, error) { return png.Decode(bytes.NewReader(data)) }},
	{".bmp", func(data []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(data)) }},
}

// TextureFile returns the file that DecodeTexture would read for name.
func TextureFile(fm FileManager, name string) (string, bool) {
	base := strings.TrimSuffix(name, path.Ext(name))
	for _, f := range textureFormats {
		if p := base + f.extension; fm.Exists(p) {
			return p, true
		}
	}
	return "", false
}

// DecodeTexture decodes the pixels of the texture with logical path name.
// Nothing is uploaded. A file extension on name is ignored.
func DecodeTexture(fm FileManager, name string) (*resources.Texture, error) {
	base := strings.TrimSuffix(name, path.Ext(name))
	for _, f := range textureFormats {
		p := base + f.extension
		if !fm.Exists(p) {
			continue
		}
		data, err := fm.ReadBytes(p)
		if err != nil {
			return nil, err
		}
		img, err := f.decode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", p, err)
		}
		b := img.Bounds()
		return &resources.Texture{
			Name:     name,
			FilePath: p,
			Width:    uint32(b.Dx()),
			Height:   uint32(b.Dy()),
			Image:    img,
		}, nil
	}
	return nil, fmt.Errorf("%w: texture %s", core.ErrResourceNotFound, name)
}
