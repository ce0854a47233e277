package loaders

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	core.SetLogOutput(&buf)
	t.Cleanup(func() { core.SetLogOutput(os.Stderr) })
	return &buf
}

func spriteRecord(t *testing.T, name string) Record {
	t.Helper()
	r, err := NewRecord(&assets.SpriteAsset{
		AssetHeader: assets.AssetHeader{GUID: uuid.New(), Name: name, FilePath: "sprites/" + name + ".toml"},
		Atlas:       "ui",
		Frames:      []string{name + "_0", name + "_1"},
	})
	require.NoError(t, err)
	return r
}

func TestLoadPackedBlobMissingIsNone(t *testing.T) {
	fm := NewOSFileManager(t.TempDir())
	blob := LoadPackedBlob[PackedArchive](fm, "preload_resources.bin")
	assert.True(t, opt.IsNone(blob))
}

func TestLoadPackedBlobCorruptIsNone(t *testing.T) {
	fm := NewOSFileManager(t.TempDir())
	require.NoError(t, fm.WriteBytes("resources.bin", []byte{0xff, 0x00, 0x13}))
	logs := captureLogs(t)

	blob := LoadPackedBlob[PackedArchive](fm, "resources.bin")
	assert.True(t, opt.IsNone(blob))
	assert.Contains(t, logs.String(), "resources.bin")
}

func TestPackedArchiveRoundTrip(t *testing.T) {
	fm := NewOSFileManager(t.TempDir())
	archive := PackedArchive{Version: ArchiveVersion, Records: []Record{spriteRecord(t, "hero"), spriteRecord(t, "coin")}}
	require.NoError(t, WritePackedBlob(fm, "resources.bin", archive))

	blob := LoadPackedBlob[PackedArchive](fm, "resources.bin")
	require.True(t, opt.IsSome(blob))
	decoded := DecodeRecords(blob.Value.Records)
	require.Len(t, decoded, 2)

	hero, ok := decoded[0].(*assets.SpriteAsset)
	require.True(t, ok)
	assert.Equal(t, "hero", hero.Name)
	assert.Equal(t, "sprites/hero.toml", hero.FilePath)
	assert.Equal(t, "ui", hero.Atlas)
	assert.Equal(t, []string{"hero_0", "hero_1"}, hero.Frames)
	assert.Equal(t, archive.Records[0].GUID, hero.GUID.String())
}

func TestDecodeRecordsSkipsMalformed(t *testing.T) {
	bad := spriteRecord(t, "broken")
	bad.Path = "sprites/broken.toml"
	payload, err := cbor.Marshal("not a sprite")
	require.NoError(t, err)
	bad.Payload = payload

	unknown := spriteRecord(t, "alien")
	unknown.Kind = "alien"

	logs := captureLogs(t)
	decoded := DecodeRecords([]Record{spriteRecord(t, "a"), bad, unknown, spriteRecord(t, "b")})

	assert.Len(t, decoded, 2)
	assert.Contains(t, logs.String(), "sprites/broken.toml")
	assert.Contains(t, logs.String(), "alien")
}

func TestDecodeRecordRunsLoadErrorHook(t *testing.T) {
	payload, err := cbor.Marshal(map[string]interface{}{
		"groups": map[string]interface{}{"enemies": 12},
	})
	require.NoError(t, err)

	_, err = DecodeRecord(Record{Kind: assets.KindWorld, GUID: uuid.NewString(), Payload: payload})
	assert.Error(t, err)
}

func TestDecodeRecordInvalidGUID(t *testing.T) {
	r := spriteRecord(t, "x")
	r.GUID = "not-a-guid"
	_, err := DecodeRecord(r)
	assert.Error(t, err)
}

func TestDeserializeStandaloneAsset(t *testing.T) {
	fm := NewOSFileManager(t.TempDir())
	r := spriteRecord(t, "door")
	r.Path = ""
	data, err := cbor.Marshal(r)
	require.NoError(t, err)
	require.NoError(t, fm.WriteBytes("door.asset", data))

	a, err := fm.DeserializeAsset("door.asset")
	require.NoError(t, err)
	assert.Equal(t, "door.asset", a.Header().FilePath)

	res := <-fm.DeserializeAssetAsync(context.Background(), "missing.asset")
	assert.Error(t, res.Err)
}

func TestDecodePackedBlobRejectsGarbage(t *testing.T) {
	logs := captureLogs(t)
	assert.True(t, opt.IsNone(DecodePackedBlob[PackedArchive]("resources.bin", []byte{0xff, 0x00})))
	assert.Contains(t, logs.String(), "resources.bin")

	data, err := cbor.Marshal(PackedArchive{Version: ArchiveVersion, Records: []Record{spriteRecord(t, "a")}})
	require.NoError(t, err)
	blob := DecodePackedBlob[PackedArchive]("resources.bin", data)
	require.True(t, opt.IsSome(blob))
	assert.Len(t, blob.Value.Records, 1)
}
