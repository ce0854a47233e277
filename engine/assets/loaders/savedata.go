package loaders

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"gopkg.in/yaml.v3"
)

const saveSlotPattern = "save_*.yaml"

type saveSlot struct {
	GUID     string         `yaml:"guid"`
	Name     string         `yaml:"name"`
	Slot     int            `yaml:"slot"`
	Language string         `yaml:"language"`
	Progress map[string]int `yaml:"progress"`
}

// SaveSlotPath is the file of slot n inside dir.
func SaveSlotPath(dir string, slot int) string {
	return filepath.Join(dir, fmt.Sprintf("save_%d.yaml", slot))
}

// LoadSaveSlots reads every save slot in dir. Broken slots are logged and
// skipped. Returned assets carry absolute paths.
func LoadSaveSlots(fm FileManager, dir string) ([]*assets.SaveDataAsset, error) {
	matches, err := fm.Glob(filepath.Join(dir, saveSlotPattern))
	if err != nil {
		return nil, err
	}
	out := make([]*assets.SaveDataAsset, 0, len(matches))
	for _, abs := range matches {
		data, err := fm.ReadBytes(abs)
		if err != nil {
			core.LogWarn("skipping save slot %s: %s", abs, err)
			continue
		}
		var s saveSlot
		if err := yaml.Unmarshal(data, &s); err != nil {
			core.LogWarn("skipping save slot %s: %s", abs, err)
			continue
		}
		save := &assets.SaveDataAsset{
			AssetHeader: assets.AssetHeader{Name: s.Name, FilePath: abs, SaveData: true},
			Slot:        s.Slot,
			Language:    s.Language,
			Progress:    s.Progress,
		}
		if id, ok := core.ParseIdentifier(s.GUID); ok {
			save.GUID = id
		}
		out = append(out, save)
	}
	return out, nil
}

// WriteSaveSlot persists save into dir and updates its FilePath.
func WriteSaveSlot(fm FileManager, dir string, save *assets.SaveDataAsset) error {
	if save.GUID == uuid.Nil {
		save.GUID = core.NewIdentifier()
	}
	data, err := yaml.Marshal(saveSlot{
		GUID:     save.GUID.String(),
		Name:     save.Name,
		Slot:     save.Slot,
		Language: save.Language,
		Progress: save.Progress,
	})
	if err != nil {
		return err
	}
	p := SaveSlotPath(dir, save.Slot)
	if err := fm.WriteBytes(p, data); err != nil {
		return err
	}
	if abs, err := filepath.Abs(fm.Resolve(p)); err == nil {
		p = abs
	}
	save.FilePath = p
	save.SaveData = true
	return nil
}
