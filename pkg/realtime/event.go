// Package realtime pushes canvas change events to websocket subscribers.
//
// Every app has one room, "app:<id>". Handlers publish through the
// [Broadcaster] interface; delivery is best effort and never fails the
// request that caused the event.
package realtime

import (
	"fmt"
	"sync"
	"time"
)

// Event types published by the API.
const (
	EventCanvasUpdated       = "canvas:updated"
	EventElementCreated      = "element:created"
	EventElementUpdated      = "element:updated"
	EventElementDeleted      = "element:deleted"
	EventElementsBulkUpdated = "elements:bulk-updated"
	EventElementsBulkDeleted = "elements:bulk-deleted"
	EventElementsGrouped     = "elements:grouped"
	EventElementsUngrouped   = "elements:ungrouped"
	EventWorkflowSaved       = "workflow:saved"
)

// Event is one message sent to a room.
type Event struct {
	Type      string    `json:"type"`
	AppID     uint      `json:"appId"`
	UserID    uint      `json:"userId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster publishes events to the subscribers of an app.
type Broadcaster interface {
	Broadcast(appID uint, event Event)
}

// Room returns the room name of an app.
func Room(appID uint) string {
	return fmt.Sprintf("app:%d", appID)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Broadcast(uint, Event) {}

// Recorder keeps every event in memory. It is meant for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Broadcast(appID uint, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.AppID = appID
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
