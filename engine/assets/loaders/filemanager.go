package loaders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/spaghettifunk/anima/engine/assets"
	"golang.org/x/exp/slices"
)

// FetchResult is delivered once by the asynchronous reads.
type FetchResult struct {
	Data []byte
	Err  error
}

type AssetResult struct {
	Asset assets.Asset
	Err   error
}

// FileManager is the file access the content pipeline is allowed to use.
// Relative paths resolve against Root.
type FileManager interface {
	Root() string
	Resolve(path string) string
	Exists(path string) bool
	ReadBytes(path string) ([]byte, error)
	ReadBytesAsync(ctx context.Context, path string) <-chan FetchResult
	WriteBytes(path string, data []byte) error
	Glob(pattern string) ([]string, error)
	DeserializeAsset(path string) (assets.Asset, error)
	DeserializeAssetAsync(ctx context.Context, path string) <-chan AssetResult
}

// OSFileManager reads from the local file system.
type OSFileManager struct {
	root string
}

func NewOSFileManager(root string) *OSFileManager {
	return &OSFileManager{root: root}
}

func (fm *OSFileManager) Root() string { return fm.root }

func (fm *OSFileManager) Resolve(path string) string {
	if filepath.IsAbs(path) || fm.root == "" {
		return path
	}
	return filepath.Join(fm.root, path)
}

func (fm *OSFileManager) Exists(path string) bool {
	info, err := os.Stat(fm.Resolve(path))
	return err == nil && !info.IsDir()
}

func (fm *OSFileManager) ReadBytes(path string) ([]byte, error) {
	return os.ReadFile(fm.Resolve(path))
}

func (fm *OSFileManager) ReadBytesAsync(ctx context.Context, path string) <-chan FetchResult {
	out := make(chan FetchResult, 1)
	go func() {
		defer close(out)
		if err := ctx.Err(); err != nil {
			out <- FetchResult{Err: err}
			return
		}
		data, err := fm.ReadBytes(path)
		out <- FetchResult{Data: data, Err: err}
	}()
	return out
}

func (fm *OSFileManager) WriteBytes(path string, data []byte) error {
	full := fm.Resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// Glob returns the absolute paths of the matches, sorted.
func (fm *OSFileManager) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(fm.Resolve(pattern))
	if err != nil {
		return nil, err
	}
	for i, m := range matches {
		if abs, err := filepath.Abs(m); err == nil {
			matches[i] = abs
		}
	}
	slices.Sort(matches)
	return matches, nil
}

// DeserializeAsset reads a standalone asset file: a single CBOR encoded Record.
func (fm *OSFileManager) DeserializeAsset(path string) (assets.Asset, error) {
	data, err := fm.ReadBytes(path)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := cbor.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding asset %s: %w", path, err)
	}
	if record.Path == "" {
		record.Path = path
	}
	return DecodeRecord(record)
}

func (fm *OSFileManager) DeserializeAssetAsync(ctx context.Context, path string) <-chan AssetResult {
	out := make(chan AssetResult, 1)
	go func() {
		defer close(out)
		if err := ctx.Err(); err != nil {
			out <- AssetResult{Err: err}
			return
		}
		a, err := fm.DeserializeAsset(path)
		out <- AssetResult{Asset: a, Err: err}
	}()
	return out
}
