// Package testutil provides the shared fixtures for keeper and strategy
// tests: an in-memory store context and a recording event service.
package testutil

import (
	"context"

	"cosmossdk.io/collections/colltest"
	"cosmossdk.io/core/event"
	"cosmossdk.io/core/store"
	"cosmossdk.io/core/transaction"

	"github.com/strandlabs/vault/types"
)

// NewTestContext returns a context bound to a fresh in-memory KV store.
func NewTestContext() (context.Context, store.KVStoreService) {
	svc, ctx := colltest.MockStore()
	return ctx, svc
}

// EventRecorder implements event.Service and captures every emitted event
// so tests can assert on types and attributes.
type EventRecorder struct {
	Events []types.Event
}

var _ event.Service = (*EventRecorder)(nil)

// NewEventRecorder returns an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// EventManager returns the recorder itself; all contexts share one stream.
func (r *EventRecorder) EventManager(_ context.Context) event.Manager {
	return (*recorderManager)(r)
}

// Reset drops all captured events.
func (r *EventRecorder) Reset() {
	r.Events = nil
}

// OfType returns the captured events with the given type name.
func (r *EventRecorder) OfType(eventType string) []types.Event {
	var out []types.Event
	for _, e := range r.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Attribute returns the value of the named attribute on an event, or "".
func Attribute(e types.Event, key string) string {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

type recorderManager EventRecorder

var _ event.Manager = (*recorderManager)(nil)

func (m *recorderManager) Emit(_ transaction.Msg) error { return nil }

func (m *recorderManager) EmitKV(eventType string, attrs ...event.Attribute) error {
	m.Events = append(m.Events, types.Event{Type: eventType, Attributes: attrs})
	return nil
}
