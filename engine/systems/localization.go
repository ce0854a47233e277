package systems

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	opt "github.com/repeale/fp-go/option"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PreferenceStore persists the language the user asked for.
type PreferenceStore interface {
	SetLanguagePreference(lang string) error
}

// LocalizationSystem maps language tags to localization assets through the
// game profile and keeps the active one.
type LocalizationSystem struct {
	registry *assets.Registry
	events   *core.EventBus
	store    PreferenceStore

	mu      sync.RWMutex
	profile *loaders.GameProfile

	current  atomic.Pointer[assets.LocalizationAsset]
	language atomic.Value
	printer  atomic.Pointer[message.Printer]
}

func NewLocalizationSystem(registry *assets.Registry, profile *loaders.GameProfile, store PreferenceStore, events *core.EventBus) (*LocalizationSystem, error) {
	if registry == nil {
		return nil, fmt.Errorf("func NewLocalizationSystem - registry is required")
	}
	ls := &LocalizationSystem{
		registry: registry,
		events:   events,
		store:    store,
		profile:  profile,
	}
	ls.language.Store(language.English)
	ls.printer.Store(message.NewPrinter(language.English))
	return ls, nil
}

func (ls *LocalizationSystem) SetProfile(profile *loaders.GameProfile) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.profile = profile
}

// DefaultLanguage is the profile's default language, English if unset.
func (ls *LocalizationSystem) DefaultLanguage() language.Tag {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	if ls.profile == nil || ls.profile.DefaultLanguage == "" {
		return language.English
	}
	tag, err := language.Parse(ls.profile.DefaultLanguage)
	if err != nil {
		return language.English
	}
	return tag
}

// lookup finds the localization GUID mapped to tag, trying the base
// language when the full tag is not mapped.
func (ls *LocalizationSystem) lookup(tag language.Tag) opt.Option[uuid.UUID] {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	if ls.profile == nil {
		return opt.None[uuid.UUID]()
	}
	if found := ls.profile.LocalizationFor(tag.String()); opt.IsSome(found) {
		return found
	}
	base, _ := tag.Base()
	return ls.profile.LocalizationFor(base.String())
}

func (ls *LocalizationSystem) resolve(tag language.Tag) (*assets.LocalizationAsset, error) {
	guid := ls.lookup(tag)
	if opt.IsNone(guid) {
		return nil, fmt.Errorf("language %s is not mapped", tag)
	}
	return assets.Get[*assets.LocalizationAsset](ls.registry, guid.Value)
}

// GetLocalization returns the localization for lang, falling back to the
// default language with a warning. ErrLocalizationConfiguration means that
// neither is available.
func (ls *LocalizationSystem) GetLocalization(lang language.Tag) (*assets.LocalizationAsset, error) {
	loc, err := ls.resolve(lang)
	if err == nil {
		return loc, nil
	}
	fallback := ls.DefaultLanguage()
	core.LogWarn("no localization for %s (%s), falling back to %s", lang, err, fallback)
	if fallback == lang {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrLocalizationConfiguration, lang, err)
	}
	loc, ferr := ls.resolve(fallback)
	if ferr != nil {
		return nil, fmt.Errorf("%w: %s: %v; %s: %v", core.ErrLocalizationConfiguration, lang, err, fallback, ferr)
	}
	return loc, nil
}

// ChangeLanguage persists lang as the user's preference and activates the
// localization resolved for it.
func (ls *LocalizationSystem) ChangeLanguage(lang language.Tag) error {
	if ls.store != nil {
		if err := ls.store.SetLanguagePreference(lang.String()); err != nil {
			core.LogWarn("failed to persist language preference %s: %s", lang, err)
		}
	}
	return ls.activate(lang)
}

// activate switches to lang without touching the stored preference.
func (ls *LocalizationSystem) activate(lang language.Tag) error {
	loc, err := ls.GetLocalization(lang)
	if err != nil {
		return err
	}
	culture := language.Make(loc.Language)
	if loc.Language == "" {
		culture = lang
	}
	ls.printer.Store(message.NewPrinter(culture))
	ls.language.Store(culture)
	ls.current.Store(loc)

	if ls.events != nil {
		ls.events.Fire(core.EventContext{Code: core.EventCodeLanguageChanged, Sender: ls, Data: culture})
	}
	return nil
}

// Current is the active localization, nil before the first language switch.
func (ls *LocalizationSystem) Current() *assets.LocalizationAsset {
	return ls.current.Load()
}

func (ls *LocalizationSystem) Language() language.Tag {
	return ls.language.Load().(language.Tag)
}

// Printer formats numbers and messages for the active culture.
func (ls *LocalizationSystem) Printer() *message.Printer {
	return ls.printer.Load()
}

// Text returns the active localization's string for key.
func (ls *LocalizationSystem) Text(key string) string {
	if loc := ls.current.Load(); loc != nil {
		return loc.Get(key)
	}
	return key
}

// Reset drops the active localization.
func (ls *LocalizationSystem) Reset() {
	ls.current.Store(nil)
}
