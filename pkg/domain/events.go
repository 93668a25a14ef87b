package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventOpen       EventType = "open"
	EventLoad       EventType = "load"
	EventInsert     EventType = "insert"
	EventUpdate     EventType = "update"
	EventDelete     EventType = "delete"
	EventInvalidate EventType = "invalidate"
	EventClear      EventType = "clear_credential"
)

// SessionEvent describes one step of a session lifecycle.
type SessionEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	SessionID string        `json:"session_id"`
	New       bool          `json:"new,omitempty"`
	Found     bool          `json:"found,omitempty"` // load only
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
// Any of them may be nil.
type LifecycleHooks struct {
	OnOpen   func(context.Context, *SessionEvent)
	OnLoad   func(context.Context, *SessionEvent)
	OnSave   func(context.Context, *SessionEvent) // insert, update and clear_credential
	OnRemove func(context.Context, *SessionEvent) // delete and invalidate
}
