package assets

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sprite(name string) *SpriteAsset {
	return &SpriteAsset{
		AssetHeader: AssetHeader{GUID: uuid.New(), Name: name, FilePath: "sprites/" + name + ".asset"},
		Atlas:       "ui",
	}
}

func TestRegistryAddAndTryGet(t *testing.T) {
	r := NewRegistry()
	s := sprite("button")

	require.NoError(t, r.Add(s, false))

	got, ok := r.TryGet(s.GUID)
	require.True(t, ok)
	assert.Same(t, s, got)

	byType := r.FilterByTypes(TypeOf[*SpriteAsset]())
	assert.Len(t, byType, 1)
	assert.Contains(t, byType, s.GUID)
	assert.Empty(t, r.FilterByTypes(TypeOf[*FontAsset]()))
}

func TestRegistryAssignsGUIDAndName(t *testing.T) {
	r := NewRegistry()
	f := &FontAsset{Index: 1}

	require.NoError(t, r.Add(f, false))
	assert.NotEqual(t, uuid.Nil, f.GUID)
	assert.Equal(t, f.GUID.String(), f.Name)
}

func TestRegistryRejectsTransient(t *testing.T) {
	r := NewRegistry()
	s := sprite("ghost")
	s.Transient = true

	err := r.Add(s, false)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryDuplicateKeepsFirst(t *testing.T) {
	r := NewRegistry()
	first := sprite("first")
	second := sprite("second")
	second.GUID = first.GUID

	require.NoError(t, r.Add(first, false))
	err := r.Add(second, false)
	assert.ErrorIs(t, err, core.ErrDuplicateAsset)

	got, ok := r.TryGet(first.GUID)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryOverwriteReplacesEntry(t *testing.T) {
	r := NewRegistry()
	s := sprite("hero")
	require.NoError(t, r.Add(s, false))

	f := &FontAsset{AssetHeader: AssetHeader{GUID: s.GUID, Name: "hero-font"}}
	require.NoError(t, r.Add(f, true))

	got, ok := r.TryGet(s.GUID)
	require.True(t, ok)
	assert.Same(t, f, got)
	assert.Empty(t, r.FilterByTypes(TypeOf[*SpriteAsset]()))
	assert.Len(t, r.FilterByTypes(TypeOf[*FontAsset]()), 1)
}

func TestRegistryRemoveRequiresExactType(t *testing.T) {
	r := NewRegistry()
	s := sprite("coin")
	require.NoError(t, r.Add(s, false))

	err := r.Remove(TypeOf[*FontAsset](), s.GUID)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, ok := r.TryGet(s.GUID)
	assert.True(t, ok)

	require.NoError(t, r.Remove(TypeOf[*SpriteAsset](), s.GUID))
	_, ok = r.TryGet(s.GUID)
	assert.False(t, ok)
	assert.Empty(t, r.FilterByTypes(TypeOf[*SpriteAsset]()))

	assert.ErrorIs(t, r.Remove(TypeOf[*SpriteAsset](), s.GUID), core.ErrInvalidArgument)
}

func TestGetFallsBackToPlaceholder(t *testing.T) {
	r := NewRegistry()
	missing := uuid.New()

	_, err := Get[*SpriteAsset](r, missing)
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	placeholder := sprite("missing-image")
	require.NoError(t, r.Add(placeholder, false))
	r.SetPlaceholder(TypeOf[*SpriteAsset](), placeholder.GUID)

	got, err := Get[*SpriteAsset](r, missing)
	require.NoError(t, err)
	assert.Same(t, placeholder, got)

	_, err = Get[*FontAsset](r, missing)
	assert.ErrorIs(t, err, core.ErrAssetNotFound)
}

func TestGetWrongTypeIsNotFound(t *testing.T) {
	r := NewRegistry()
	s := sprite("tree")
	require.NoError(t, r.Add(s, false))

	_, err := Get[*LocalizationAsset](r, s.GUID)
	assert.ErrorIs(t, err, core.ErrAssetNotFound)
}

func TestFilterExcludingTypes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(sprite("a"), false))
	require.NoError(t, r.Add(sprite("b"), false))
	require.NoError(t, r.Add(&FontAsset{Index: 2}, false))
	require.NoError(t, r.Add(&LocalizationAsset{Language: "en"}, false))

	rest := r.FilterExcludingTypes(TypeOf[*SpriteAsset]())
	assert.Len(t, rest, 2)
	for _, a := range rest {
		assert.NotEqual(t, reflect.TypeOf(&SpriteAsset{}), reflect.TypeOf(a))
	}
	assert.Len(t, r.FilterExcludingTypes(), 4)
	assert.Len(t, All[*SpriteAsset](r), 2)
}

func TestRegistryNotifiesSubscribers(t *testing.T) {
	r := NewRegistry()
	var changes []AssetChange
	r.Subscribe(func(c AssetChange) { changes = append(changes, c) })

	s := sprite("flag")
	require.NoError(t, r.Add(s, false))
	require.NoError(t, r.Add(s, true))
	require.NoError(t, r.Remove(TypeOf[*SpriteAsset](), s.GUID))
	r.Clear()

	require.Len(t, changes, 4)
	assert.Equal(t, ChangeAdded, changes[0].Op)
	assert.Equal(t, ChangeReplaced, changes[1].Op)
	assert.Equal(t, ChangeRemoved, changes[2].Op)
	assert.Equal(t, ChangeCleared, changes[3].Op)

	r.Dispose()
	require.Len(t, changes, 5)
	require.NoError(t, r.Add(sprite("after"), false))
	assert.Len(t, changes, 5, "subscribers are dropped on dispose")
}

func TestWorldAssetGroups(t *testing.T) {
	w := &WorldAsset{}
	e := uuid.New()

	w.MoveToGroup("enemies", e)
	w.MoveToGroup("props", e)

	assert.Equal(t, []string{"enemies", "props"}, w.GroupNames())
	assert.Empty(t, w.Groups["enemies"])
	assert.Equal(t, []uuid.UUID{e}, w.Groups["props"])
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Kind("nope"))
	assert.Error(t, err)

	a, err := New(KindSound)
	require.NoError(t, err)
	assert.IsType(t, &SoundAsset{}, a)
}
