// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Session lifecycle
	SessionStarted EventType = "session.started"
	SessionStopped EventType = "session.stopped"
	SessionFailed  EventType = "session.failed"

	// Token feed
	FeedRefreshed     EventType = "feed.refreshed"
	FeedRefreshFailed EventType = "feed.refresh_failed"

	// Price alerts
	AlertsTriggered EventType = "alerts.triggered"

	// Watchlist
	WatchlistChanged EventType = "watchlist.changed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// Base builds a BaseEvent stamped with the current time.
func Base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// SessionStartedEvent is emitted when the remote pipeline activates.
type SessionStartedEvent struct {
	BaseEvent
	UserEmail string
}

// SessionStoppedEvent is emitted when the remote pipeline deactivates.
type SessionStoppedEvent struct {
	BaseEvent
	Reason string // "manual_stop", "shutdown"
}

// SessionFailedEvent is emitted when activation fails.
type SessionFailedEvent struct {
	BaseEvent
	Error error
}

// FeedRefreshedEvent is emitted after a successful all-feed refresh.
type FeedRefreshedEvent struct {
	BaseEvent
	EarlyCount     int
	ConfirmedCount int
	TargetsCount   int
	Duration       time.Duration
	Silent         bool
}

// FeedRefreshFailedEvent is emitted when any of the three feeds fails.
type FeedRefreshFailedEvent struct {
	BaseEvent
	Error  error
	Silent bool
}

// AlertsTriggeredEvent is emitted when a monitoring pass reports newly
// triggered alerts.
type AlertsTriggeredEvent struct {
	BaseEvent
	Count   int
	Surface string // "panel" or "status"
}

// WatchlistChangedEvent is emitted after a CRUD call plus reload.
type WatchlistChangedEvent struct {
	BaseEvent
	Operation string // "toggle_alert", "update_settings", "remove"
	EntryID   string
}
