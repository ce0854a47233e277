package assets

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"github.com/spaghettifunk/anima/engine/core"
)

type ChangeOp int

const (
	ChangeAdded ChangeOp = iota
	ChangeReplaced
	ChangeRemoved
	ChangeCleared
)

func (op ChangeOp) String() string {
	switch op {
	case ChangeAdded:
		return "added"
	case ChangeReplaced:
		return "replaced"
	case ChangeRemoved:
		return "removed"
	case ChangeCleared:
		return "cleared"
	}
	return "unknown"
}

// AssetChange describes one mutation of a Registry.
type AssetChange struct {
	Op   ChangeOp
	GUID uuid.UUID
	Type reflect.Type
}

// Registry is the GUID keyed asset database. Assets are indexed by their
// concrete runtime type so that polymorphic queries see exact types only.
// The flat map and the type index always hold the same set of GUIDs.
type Registry struct {
	mu           deadlock.RWMutex
	assets       map[uuid.UUID]Asset
	byType       map[reflect.Type]map[uuid.UUID]struct{}
	placeholders map[reflect.Type]uuid.UUID

	subsMu      sync.RWMutex
	subscribers []func(AssetChange)
}

func NewRegistry() *Registry {
	return &Registry{
		assets:       make(map[uuid.UUID]Asset),
		byType:       make(map[reflect.Type]map[uuid.UUID]struct{}),
		placeholders: make(map[reflect.Type]uuid.UUID),
	}
}

// Subscribe registers fn to be called after every change. Callbacks run
// outside the registry lock and may query the registry.
func (r *Registry) Subscribe(fn func(AssetChange)) {
	r.subsMu.Lock()
	r.subscribers = append(r.subscribers, fn)
	r.subsMu.Unlock()
}

func (r *Registry) notify(change AssetChange) {
	r.subsMu.RLock()
	subs := r.subscribers
	r.subsMu.RUnlock()
	for _, fn := range subs {
		fn(change)
	}
}

// Add registers asset. Assets that opt out of the database are rejected. A
// nil GUID is replaced with a fresh one and a blank name defaults to the
// GUID string. Without overwrite, a GUID already present is rejected with
// ErrDuplicateAsset and the registry is left untouched.
func (r *Registry) Add(asset Asset, overwrite bool) error {
	if asset == nil {
		return fmt.Errorf("%w: nil asset", core.ErrInvalidArgument)
	}
	h := asset.Header()
	if !asset.StoreInDatabase() {
		core.LogWarn("asset %q (%s) is not stored in the database, skipping", h.Name, h.FilePath)
		return fmt.Errorf("%w: asset %q does not store in database", core.ErrInvalidArgument, h.Name)
	}
	if h.GUID == uuid.Nil {
		h.GUID = core.NewIdentifier()
	}
	if h.Name == "" {
		h.Name = h.GUID.String()
	}
	t := reflect.TypeOf(asset)

	r.mu.Lock()
	existing, exists := r.assets[h.GUID]
	if !exists {
		_, exists = r.byType[t][h.GUID]
	}
	if exists && !overwrite {
		r.mu.Unlock()
		var otherDir, otherPath string
		if existing != nil {
			otherDir, otherPath = filepath.Dir(existing.Header().FilePath), existing.Header().FilePath
		}
		core.LogError("duplicate asset guid %s: %s (%s) already registered, rejecting %s (%s)",
			h.GUID, otherPath, otherDir, h.FilePath, filepath.Dir(h.FilePath))
		return fmt.Errorf("%w: %s", core.ErrDuplicateAsset, h.GUID)
	}
	if existing != nil {
		r.unindex(reflect.TypeOf(existing), h.GUID)
	}
	r.assets[h.GUID] = asset
	set, ok := r.byType[t]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.byType[t] = set
	}
	set[h.GUID] = struct{}{}
	r.mu.Unlock()

	op := ChangeAdded
	if exists {
		op = ChangeReplaced
	}
	r.notify(AssetChange{Op: op, GUID: h.GUID, Type: t})
	return nil
}

// caller holds r.mu
func (r *Registry) unindex(t reflect.Type, guid uuid.UUID) {
	set := r.byType[t]
	delete(set, guid)
	if len(set) == 0 {
		delete(r.byType, t)
	}
}

// Remove evicts guid, which must be registered under exactly type t.
func (r *Registry) Remove(t reflect.Type, guid uuid.UUID) error {
	r.mu.Lock()
	_, inFlat := r.assets[guid]
	_, inIndex := r.byType[t][guid]
	if !inFlat || !inIndex {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s is not registered as %v", core.ErrInvalidArgument, guid, t)
	}
	delete(r.assets, guid)
	r.unindex(t, guid)
	r.mu.Unlock()

	r.notify(AssetChange{Op: ChangeRemoved, GUID: guid, Type: t})
	return nil
}

func (r *Registry) TryGet(guid uuid.UUID) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[guid]
	return a, ok
}

// SetPlaceholder makes Get return the asset registered under guid whenever a
// lookup for type t misses.
func (r *Registry) SetPlaceholder(t reflect.Type, guid uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if guid == uuid.Nil {
		delete(r.placeholders, t)
		return
	}
	r.placeholders[t] = guid
}

func (r *Registry) placeholder(t reflect.Type) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	guid, ok := r.placeholders[t]
	if !ok {
		return nil, false
	}
	a, ok := r.assets[guid]
	return a, ok
}

// Get returns the asset under guid as T. A miss falls back to the placeholder
// configured for T, if any, and otherwise fails with ErrAssetNotFound.
func Get[T Asset](r *Registry, guid uuid.UUID) (T, error) {
	var zero T
	if a, ok := r.TryGet(guid); ok {
		if typed, ok := a.(T); ok {
			return typed, nil
		}
		return zero, fmt.Errorf("%w: %s is %T, not %v", core.ErrAssetNotFound, guid, a, TypeOf[T]())
	}
	if a, ok := r.placeholder(TypeOf[T]()); ok {
		if typed, ok := a.(T); ok {
			return typed, nil
		}
	}
	return zero, fmt.Errorf("%w: %s", core.ErrAssetNotFound, guid)
}

// All returns every asset of type T.
func All[T Asset](r *Registry) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byType[TypeOf[T]()]
	out := make([]T, 0, len(set))
	for guid := range set {
		out = append(out, r.assets[guid].(T))
	}
	return out
}

// FilterByTypes returns the union of the assets indexed under types.
func (r *Registry) FilterByTypes(types ...reflect.Type) map[uuid.UUID]Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]Asset)
	for _, t := range types {
		for guid := range r.byType[t] {
			out[guid] = r.assets[guid]
		}
	}
	return out
}

// FilterExcludingTypes returns every asset whose type is not in types.
func (r *Registry) FilterExcludingTypes(types ...reflect.Type) map[uuid.UUID]Asset {
	excluded := make(map[reflect.Type]struct{}, len(types))
	for _, t := range types {
		excluded[t] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]Asset)
	for t, set := range r.byType {
		if _, skip := excluded[t]; skip {
			continue
		}
		for guid := range set {
			out[guid] = r.assets[guid]
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

// Clear drops every asset. Placeholders and subscribers survive.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.assets = make(map[uuid.UUID]Asset)
	r.byType = make(map[reflect.Type]map[uuid.UUID]struct{})
	r.mu.Unlock()

	r.notify(AssetChange{Op: ChangeCleared})
}

// Dispose clears the registry and forgets placeholders and subscribers.
func (r *Registry) Dispose() {
	r.Clear()

	r.mu.Lock()
	r.placeholders = make(map[reflect.Type]uuid.UUID)
	r.mu.Unlock()

	r.subsMu.Lock()
	r.subscribers = nil
	r.subsMu.Unlock()
}
