package watcher

import "github.com/fsnotify/fsnotify"

const (
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
)

type EventType string
type BatchesChannel <-chan Batch

type Event struct {
	Path string
	Type EventType
}

// Batch is a set of changes detected within one coalescing window. A batch
// sent over BatchesChannel is never empty.
type Batch []Event

func eventType(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return EventDeleted, true
	case op.Has(fsnotify.Create):
		return EventAdded, true
	case op.Has(fsnotify.Write):
		return EventModified, true
	default:
		return "", false
	}
}
