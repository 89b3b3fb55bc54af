// Package events fans out node events to registered subscribers such as
// websocket clients.
package events

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// messageBuffer is the number of events held for a subscriber that is
// not ready to receive. Events sent to a full subscriber are dropped.
const messageBuffer = 100

// subscriber receives the events starting with prefix. An empty prefix
// receives everything.
type subscriber struct {
	prefix string
	ch     chan string
}

// Events keeps the set of subscribers keyed by id.
type Events struct {
	mu   sync.RWMutex
	subs map[string]subscriber
}

// New constructs an empty set of subscribers.
func New() *Events {
	return &Events{
		subs: make(map[string]subscriber),
	}
}

// Subscribe registers a subscriber under a generated id for the events that
// start with prefix. The id must be passed to Release when done.
func (evt *Events) Subscribe(prefix string) (string, <-chan string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub := subscriber{
		prefix: prefix,
		ch:     make(chan string, messageBuffer),
	}

	id := uuid.NewString()
	evt.subs[id] = sub

	return id, sub.ch
}

// Release closes and removes the subscriber's channel.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)

	return nil
}

// Shutdown releases every subscriber.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}

// Count returns the number of registered subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send delivers the event to every subscriber whose prefix matches. It never
// blocks on a slow subscriber.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.subs {
		if !strings.HasPrefix(s, sub.prefix) {
			continue
		}

		select {
		case sub.ch <- s:
		default:
		}
	}
}
