package loaders

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
)

const ArchiveVersion = 1

// Record is one serialized asset inside a packed archive.
type Record struct {
	Kind    assets.Kind     `cbor:"kind"`
	GUID    string          `cbor:"guid"`
	Name    string          `cbor:"name,omitempty"`
	Path    string          `cbor:"path,omitempty"`
	Payload cbor.RawMessage `cbor:"payload"`
}

// PackedArchive is the container stored in the preload and full archives.
type PackedArchive struct {
	Version int      `cbor:"version"`
	Records []Record `cbor:"records"`
}

// LoadPackedBlob decodes the blob at path into T. It never synthesizes a
// default: a missing or unreadable file yields None and the caller decides
// whether that is fatal.
func LoadPackedBlob[T any](fm FileManager, path string) opt.Option[T] {
	if !fm.Exists(path) {
		return opt.None[T]()
	}
	data, err := fm.ReadBytes(path)
	if err != nil {
		core.LogWarn("failed to read packed blob %s: %s", path, err)
		return opt.None[T]()
	}
	return DecodePackedBlob[T](path, data)
}

// DecodePackedBlob decodes blob bytes already read from path.
func DecodePackedBlob[T any](path string, data []byte) opt.Option[T] {
	var v T
	if err := cbor.Unmarshal(data, &v); err != nil {
		core.LogWarn("failed to decode packed blob %s: %s", path, err)
		return opt.None[T]()
	}
	return opt.Some(v)
}

// WritePackedBlob encodes v and writes it to path.
func WritePackedBlob[T any](fm FileManager, path string, v T) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	return fm.WriteBytes(path, data)
}

// NewRecord serializes asset into a Record.
func NewRecord(asset assets.Asset) (Record, error) {
	payload, err := cbor.Marshal(asset)
	if err != nil {
		return Record{}, err
	}
	h := asset.Header()
	guid := ""
	if h.GUID != uuid.Nil {
		guid = h.GUID.String()
	}
	return Record{
		Kind:    asset.Kind(),
		GUID:    guid,
		Name:    h.Name,
		Path:    h.FilePath,
		Payload: payload,
	}, nil
}

// DecodeRecord builds the concrete asset for r. If the payload fails to
// decode after the asset was created, the asset's LoadErrorHook runs once.
func DecodeRecord(r Record) (assets.Asset, error) {
	asset, err := assets.New(r.Kind)
	if err != nil {
		return nil, err
	}
	h := asset.Header()
	if r.GUID != "" {
		guid, err := uuid.Parse(r.GUID)
		if err != nil {
			return nil, fmt.Errorf("invalid guid %q: %w", r.GUID, err)
		}
		h.GUID = guid
	}
	h.Name = r.Name
	h.FilePath = r.Path

	if len(r.Payload) > 0 {
		if err := cbor.Unmarshal(r.Payload, asset); err != nil {
			if hook, ok := asset.(assets.LoadErrorHook); ok {
				hook.OnLoadError(err)
			}
			return nil, err
		}
	}
	return asset, nil
}

// DecodeRecords decodes every record of a batch. A record that fails is
// logged with its path and skipped; it never aborts the batch.
func DecodeRecords(records []Record) []assets.Asset {
	out := make([]assets.Asset, 0, len(records))
	for i, r := range records {
		a, err := DecodeRecord(r)
		if err != nil {
			core.LogWarn("skipping asset %d (%s) at %s: %s", i, r.Kind, r.Path, err)
			continue
		}
		out = append(out, a)
	}
	return out
}
