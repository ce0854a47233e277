package systems

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/resources"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	core.SetLogOutput(&buf)
	t.Cleanup(func() { core.SetLogOutput(os.Stderr) })
	return &buf
}

func writePNG(t *testing.T, fm loaders.FileManager, p string) {
	t.Helper()
	writeSizedPNG(t, fm, p, 4)
}

func writeSizedPNG(t *testing.T, fm loaders.FileManager, p string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, fm.WriteBytes(p, buf.Bytes()))
}

// writeAtlas writes atlas id with one png texture under atlas/.
func writeAtlas(t *testing.T, fm loaders.FileManager, id string) {
	t.Helper()
	texture := "atlas/" + id + "_0"
	writePNG(t, fm, texture+".png")
	require.NoError(t, loaders.WriteAtlasDescriptor(fm, "atlas", &resources.TextureAtlas{
		ID:           id,
		TexturePaths: []string{texture},
		Regions: map[string]resources.AtlasRegion{
			"frame": {Name: "frame", W: 4, H: 4},
		},
	}))
}

func record(t *testing.T, a assets.Asset) loaders.Record {
	t.Helper()
	r, err := loaders.NewRecord(a)
	require.NoError(t, err)
	return r
}

func newSprite(name, atlas string) *assets.SpriteAsset {
	return &assets.SpriteAsset{
		AssetHeader: assets.AssetHeader{GUID: uuid.New(), Name: name, FilePath: "sprites/" + name + ".toml"},
		Atlas:       atlas,
		Frames:      []string{"frame"},
	}
}

func newLocalization(lang string) *assets.LocalizationAsset {
	return &assets.LocalizationAsset{
		AssetHeader: assets.AssetHeader{GUID: uuid.New(), Name: "strings_" + lang, FilePath: "localization/" + lang + ".toml"},
		Language:    lang,
		Strings:     map[string]string{"hello": "hello " + lang},
	}
}

type contentFixture struct {
	root     string
	packed   loaders.FileManager
	profile  *loaders.GameProfile
	config   *GameDataManagerConfig
	english  *assets.LocalizationAsset
	uiSprite *assets.SpriteAsset
}

// newContentFixture lays out a game whose preload archive holds one sprite
// on atlas "ui" and whose profile maps English only. The full archive is
// left to the test.
func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()
	root := t.TempDir()
	f := &contentFixture{
		root:   root,
		packed: loaders.NewOSFileManager(root + "/packed"),
		config: &GameDataManagerConfig{
			ResourcesDir:  root + "/resources",
			PackedDir:     root + "/packed",
			SaveDir:       root + "/saves",
			LoaderWorkers: 4,
		},
		english:  newLocalization("en"),
		uiSprite: newSprite("loading", "ui"),
	}

	writeAtlas(t, f.packed, "ui")
	writeAtlas(t, f.packed, "hud")

	f.profile = loaders.DefaultGameProfile()
	f.profile.Localizations = map[string]string{"en": f.english.GUID.String()}
	require.NoError(t, loaders.SaveGameProfile(loaders.NewOSFileManager(f.config.ResourcesDir), loaders.GameProfileFile, f.profile))

	require.NoError(t, loaders.WritePackedBlob(f.packed, f.profile.PreloadArchive, loaders.PackedArchive{
		Version: loaders.ArchiveVersion,
		Records: []loaders.Record{record(t, f.uiSprite), record(t, f.english)},
	}))
	return f
}

func (f *contentFixture) writeFullArchive(t *testing.T, records []loaders.Record) {
	t.Helper()
	require.NoError(t, loaders.WritePackedBlob(f.packed, f.profile.FullArchive, loaders.PackedArchive{
		Version: loaders.ArchiveVersion,
		Records: records,
	}))
}
