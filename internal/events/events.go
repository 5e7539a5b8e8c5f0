// Package events fans detection events out to external consumers: an
// in-process bus for the websocket layer, NATS for other services, and a
// Redis cache holding the latest detection per camera.
package events

import (
	"log"
	"sync"
)

// DetectionEvent is one new observation note, flattened for transport.
type DetectionEvent struct {
	TaskID    string `json:"task_id"`
	IOID      string `json:"io_id"`
	TaskDesc  string `json:"task_desc"`
	Note      string `json:"note"`
	Done      bool   `json:"done"`
	Timestamp int64  `json:"timestamp"`
}

// Bus is a simple in-process fan-out. Subscribers receive on buffered
// channels; a full subscriber drops events rather than blocking the
// producer.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan DetectionEvent
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan DetectionEvent)}
}

// Subscribe returns a channel of events and an unsubscribe func.
func (b *Bus) Subscribe() (<-chan DetectionEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan DetectionEvent, 16)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *Bus) Publish(evt DetectionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[events] slow subscriber, dropping event for task %s", evt.TaskID)
		}
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
