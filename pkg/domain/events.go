package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
	EventStep         EventType = "step"
	EventSend         EventType = "send"
	EventReceive      EventType = "receive"
)

// Message tags used when logging received packets.
const (
	TagServer  = "server"
	TagIgnored = "ignored"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Method    string    `json:"method"`
}

// SessionEvent marks the start or the end of one method's session.
type SessionEvent struct {
	EventBase
	BuildDir string `json:"build_dir,omitempty"`
	Err      error  `json:"-"`
}

// StepEvent is emitted before a step executes.
type StepEvent struct {
	EventBase
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Note  string `json:"note,omitempty"`
}

// MessageEvent is emitted for every packet sent or received.
// Tag is TagServer or TagIgnored for received packets and empty for sent ones.
type MessageEvent struct {
	EventBase
	Tag     string  `json:"tag,omitempty"`
	Message Message `json:"message,omitempty"`
	Raw     string  `json:"raw,omitempty"`
}

// LifecycleHooks defines callbacks for driver observability.
// Every field is optional.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *SessionEvent)
	OnSessionEnd   func(context.Context, *SessionEvent)
	OnStep         func(context.Context, *StepEvent)
	OnSend         func(context.Context, *MessageEvent)
	OnReceive      func(context.Context, *MessageEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSessionStart: chain(h.OnSessionStart, other.OnSessionStart),
		OnSessionEnd:   chain(h.OnSessionEnd, other.OnSessionEnd),
		OnStep:         chain(h.OnStep, other.OnStep),
		OnSend:         chain(h.OnSend, other.OnSend),
		OnReceive:      chain(h.OnReceive, other.OnReceive),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
