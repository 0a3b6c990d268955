package sse

import (
	"encoding/json"

	"notistream/internal/model"
)

// EventKind names the server-sent event frames the stream emits.
type EventKind string

const (
	EventInit   EventKind = "init"
	EventNew    EventKind = "notification:new"
	EventUpdate EventKind = "notification:update"
	EventSync   EventKind = "notification:sync"
	EventPing   EventKind = "ping"
)

// SyncSummary tells the client to refetch; it carries only the unread total.
type SyncSummary struct {
	UnreadCount int `json:"unread_count"`
}

// Event is the closed union pushed through the hub. Exactly one payload
// field is set, according to Kind: New/Update carry Notification, Sync
// carries Summary, Init and Ping carry nothing.
type Event struct {
	Kind         EventKind
	Notification *model.Notification
	Summary      *SyncSummary
}

func NewNotificationEvent(n model.Notification) Event {
	return Event{Kind: EventNew, Notification: &n}
}

func UpdateNotificationEvent(n model.Notification) Event {
	return Event{Kind: EventUpdate, Notification: &n}
}

func SyncEvent(unread int) Event {
	return Event{Kind: EventSync, Summary: &SyncSummary{UnreadCount: unread}}
}

// Payload renders the event's data field for the wire. Init and ping frames
// have no payload.
func (e Event) Payload() ([]byte, error) {
	switch e.Kind {
	case EventNew, EventUpdate:
		return json.Marshal(e.Notification)
	case EventSync:
		return json.Marshal(e.Summary)
	default:
		return nil, nil
	}
}
