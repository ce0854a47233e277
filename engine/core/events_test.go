package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type listener struct{ hits int }

func TestEventBusRegisterFire(t *testing.T) {
	bus := NewEventBus()
	a, b := &listener{}, &listener{}

	onEvent := func(l interface{}, ctx EventContext) bool {
		l.(*listener).hits++
		return false
	}

	assert.True(t, bus.Register(EventCodeAssetsChanged, a, onEvent))
	assert.False(t, bus.Register(EventCodeAssetsChanged, a, onEvent))
	assert.True(t, bus.Register(EventCodeAssetsChanged, b, onEvent))

	assert.False(t, bus.Fire(EventContext{Code: EventCodeAssetsChanged}))
	assert.Equal(t, 1, a.hits)
	assert.Equal(t, 1, b.hits)

	assert.True(t, bus.Unregister(EventCodeAssetsChanged, a))
	assert.False(t, bus.Unregister(EventCodeAssetsChanged, a))
	bus.Fire(EventContext{Code: EventCodeAssetsChanged})
	assert.Equal(t, 1, a.hits)
	assert.Equal(t, 2, b.hits)
}

func TestEventBusHandledStopsPropagation(t *testing.T) {
	bus := NewEventBus()
	first, second := &listener{}, &listener{}

	bus.Register(EventCodeLanguageChanged, first, func(l interface{}, ctx EventContext) bool {
		l.(*listener).hits++
		return true
	})
	bus.Register(EventCodeLanguageChanged, second, func(l interface{}, ctx EventContext) bool {
		l.(*listener).hits++
		return false
	})

	assert.True(t, bus.Fire(EventContext{Code: EventCodeLanguageChanged, Data: "fr"}))
	assert.Equal(t, 1, first.hits)
	assert.Equal(t, 0, second.hits)
}

func TestLoadMetricsStage(t *testing.T) {
	m := NewLoadMetrics()
	done := m.Stage("preload")
	done()
	m.Registered.Add(3)

	_, ok := m.StageDuration("preload")
	assert.True(t, ok)
	_, ok = m.StageDuration("background")
	assert.False(t, ok)
	assert.Contains(t, m.String(), "registered=3")
	assert.Contains(t, m.String(), "preload=")
}
