package core

import "sync"

// EventCode identifies a class of events fired on an EventBus. Games should
// use codes beyond MaxEventCode.
type EventCode uint16

const (
	// The asset registry changed: an asset was added, replaced or removed.
	/* Context usage:
	 * data.Data is an AssetChange value from the assets package.
	 */
	EventCodeAssetsChanged EventCode = 0x01

	// Background loading finished and the main-thread finalize step ran.
	EventCodeContentLoaded EventCode = 0x02

	// The active language switched.
	/* Context usage:
	 * data.Data is the new language tag.
	 */
	EventCodeLanguageChanged EventCode = 0x03

	// A resource was reloaded from disk while the game was running.
	/* Context usage:
	 * data.Data is the path of the reloaded file.
	 */
	EventCodeAssetReloaded EventCode = 0x04

	MaxEventCode EventCode = 0xFF
)

type EventContext struct {
	Code   EventCode
	Sender interface{}
	Data   interface{}
}

// Should return true if handled.
type FnOnEvent func(listener interface{}, ctx EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events synchronously to registered listeners in
// registration order. It is safe for concurrent use.
type EventBus struct {
	mu         sync.RWMutex
	registered map[EventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[EventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 * listener must be comparable (typically a pointer).
 */
func (eb *EventBus) Register(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, e := range eb.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eb.registered[code] = append(eb.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister removes the listener for code. Returns false if it was never registered.
func (eb *EventBus) Unregister(code EventCode, listener interface{}) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	events := eb.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eb.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func (eb *EventBus) Fire(ctx EventContext) bool {
	eb.mu.RLock()
	events := make([]*registeredEvent, len(eb.registered[ctx.Code]))
	copy(events, eb.registered[ctx.Code])
	eb.mu.RUnlock()

	for _, e := range events {
		if e.callback(e.listener, ctx) {
			return true
		}
	}
	return false
}

// Reset drops every registration.
func (eb *EventBus) Reset() {
	eb.mu.Lock()
	eb.registered = make(map[EventCode][]*registeredEvent)
	eb.mu.Unlock()
}
