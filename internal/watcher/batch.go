package watcher

// batcher collects distinct events in order of first occurrence.
type batcher struct {
	events []Event
	seen   map[Event]struct{}
}

func newBatcher() *batcher {
	return &batcher{
		events: nil,
		seen:   make(map[Event]struct{}),
	}
}

func (b *batcher) add(event Event) bool {
	if _, ok := b.seen[event]; ok {
		return false
	}

	b.seen[event] = struct{}{}
	b.events = append(b.events, event)

	return true
}

func (b *batcher) len() int {
	return len(b.events)
}

func (b *batcher) flush() Batch {
	if len(b.events) == 0 {
		return nil
	}

	batch := Batch(b.events)
	b.events = nil
	clear(b.seen)

	return batch
}
