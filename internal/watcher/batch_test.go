package watcher

import (
	"reflect"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestBatcher(t *testing.T) {
	b := newBatcher()
	if got := b.flush(); got != nil {
		t.Fatalf("flush() of empty batcher = %v, want nil", got)
	}

	a := Event{Path: "/a", Type: EventModified}
	c := Event{Path: "/c", Type: EventAdded}

	if !b.add(a) {
		t.Errorf("add(a) = false, want true")
	}
	if !b.add(c) {
		t.Errorf("add(c) = false, want true")
	}
	if b.add(a) {
		t.Errorf("second add(a) = true, want false")
	}

	want := Batch{a, c}
	if got := b.flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("flush() = %v, want %v", got, want)
	}
	if b.len() != 0 {
		t.Errorf("len() after flush = %d, want 0", b.len())
	}
	if !b.add(a) {
		t.Errorf("add(a) after flush = false, want true")
	}
}

func Test_eventType(t *testing.T) {
	tests := []struct {
		name   string
		op     fsnotify.Op
		want   EventType
		wantOk bool
	}{
		{name: "Create", op: fsnotify.Create, want: EventAdded, wantOk: true},
		{name: "Write", op: fsnotify.Write, want: EventModified, wantOk: true},
		{name: "Remove", op: fsnotify.Remove, want: EventDeleted, wantOk: true},
		{name: "Rename", op: fsnotify.Rename, want: EventDeleted, wantOk: true},
		{name: "Create and write", op: fsnotify.Create | fsnotify.Write, want: EventAdded, wantOk: true},
		{name: "Chmod", op: fsnotify.Chmod, want: "", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eventType(tt.op)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("eventType() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}
