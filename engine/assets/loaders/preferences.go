package loaders

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima/engine/core"
)

const PreferencesFile = "preferences.toml"

// Preferences are the per-user settings kept next to the save files.
type Preferences struct {
	Language     string  `toml:"language"`
	MasterVolume float32 `toml:"master_volume"`
}

func DefaultPreferences() *Preferences {
	return &Preferences{MasterVolume: 1}
}

// LoadPreferences returns the defaults when the file is missing or broken.
func LoadPreferences(fm FileManager, path string) *Preferences {
	prefs := DefaultPreferences()
	if !fm.Exists(path) {
		return prefs
	}
	data, err := fm.ReadBytes(path)
	if err != nil {
		core.LogWarn("failed to read preferences %s: %s", path, err)
		return prefs
	}
	if err := toml.Unmarshal(data, prefs); err != nil {
		core.LogWarn("failed to decode preferences %s: %s", path, err)
		return DefaultPreferences()
	}
	return prefs
}

func SavePreferences(fm FileManager, path string, prefs *Preferences) error {
	data, err := toml.Marshal(prefs)
	if err != nil {
		return err
	}
	return fm.WriteBytes(path, data)
}
