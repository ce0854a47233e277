package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceOf(t *testing.T) {
	assert.Equal(t, ResourceAtlas, ResourceOf("atlas/ui.json"))
	assert.Equal(t, ResourceTexture, ResourceOf("images/hero.PNG"))
	assert.Equal(t, ResourceTexture, ResourceOf("images/hero.bmp"))
	assert.Equal(t, ResourceShader, ResourceOf("shaders/sprite.fxb"))
	assert.Equal(t, ResourceAsset, ResourceOf("world.asset"))
	assert.Equal(t, ResourceNone, ResourceOf("readme.txt"))
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "atlas"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas", "ui.json"), []byte("{}"), 0o644))

	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))
	defer w.Close()

	rt, ok := w.Tracked("atlas/ui.json")
	require.True(t, ok)
	assert.Equal(t, ResourceAtlas, rt)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas", "hero.png"), []byte("x"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case change := <-w.Events():
			if change.Path != "atlas/hero.png" {
				continue
			}
			assert.Equal(t, ResourceTexture, change.Resource)
			_, ok := w.Tracked("atlas/hero.png")
			assert.True(t, ok)
			return
		case <-deadline:
			t.Fatal("no change reported for atlas/hero.png")
		}
	}
}
