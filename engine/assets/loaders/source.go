package loaders

import (
	"fmt"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
)

// assetSource is the editable form of an asset:
//
//	kind = "sprite"
//	guid = "0b6e..."
//	name = "button"
//	[payload]
//	atlas = "ui"
type assetSource struct {
	Kind    string                 `toml:"kind"`
	GUID    string                 `toml:"guid"`
	Name    string                 `toml:"name"`
	Payload map[string]interface{} `toml:"payload"`
}

// ParseSource turns an asset source file into a Record. The payload is
// decoded into the concrete kind first so a packed record is always valid.
func ParseSource(path string, data []byte) (Record, error) {
	var src assetSource
	if err := toml.Unmarshal(data, &src); err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	asset, err := assets.New(assets.Kind(src.Kind))
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	if src.Payload != nil {
		raw, err := toml.Marshal(src.Payload)
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", path, err)
		}
		if err := toml.Unmarshal(raw, asset); err != nil {
			return Record{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	payload, err := cbor.Marshal(asset)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	guid := src.GUID
	if guid == "" {
		guid = core.NewIdentifier().String()
	} else if _, ok := core.ParseIdentifier(guid); !ok {
		return Record{}, fmt.Errorf("%s: invalid guid %q", path, guid)
	}
	return Record{
		Kind:    asset.Kind(),
		GUID:    guid,
		Name:    src.Name,
		Path:    filepath.ToSlash(path),
		Payload: payload,
	}, nil
}

// PackSources builds an archive from every *.toml source in dir. Sources
// that do not parse are logged and left out.
func PackSources(fm FileManager, dir string) (*PackedArchive, error) {
	matches, err := fm.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	archive := &PackedArchive{Version: ArchiveVersion}
	for _, m := range matches {
		data, err := fm.ReadBytes(m)
		if err != nil {
			core.LogWarn("skipping source %s: %s", m, err)
			continue
		}
		r, err := ParseSource(filepath.Join(dir, filepath.Base(m)), data)
		if err != nil {
			core.LogWarn("skipping source %s: %s", m, err)
			continue
		}
		archive.Records = append(archive.Records, r)
	}
	return archive, nil
}
