package events

import (
	"sync"

	"inkwell/notes/internal/db"
)

// DefaultBuffer is the number of pending note lists a subscriber may hold
const DefaultBuffer = 4

// Broker fans the full note list out to every subscriber after a mutation.
// Each message is a complete snapshot, so a full subscriber loses its oldest
// pending snapshot instead of blocking the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan []db.Note]struct{}
	buffer      int
	closed      bool
}

// NewBroker creates a broker whose subscriber channels hold buffer lists
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{subscribers: make(map[chan []db.Note]struct{}), buffer: buffer}
}

// Subscribe registers a new subscriber. The channel is closed by Unsubscribe
// or Close; on a closed broker it is returned already closed.
func (b *Broker) Subscribe() chan []db.Note {
	ch := make(chan []db.Note, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Broker) Unsubscribe(ch chan []db.Note) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		close(ch)
		delete(b.subscribers, ch)
	}
}

// Publish sends notes to every subscriber without blocking
func (b *Broker) Publish(notes []db.Note) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- notes:
			continue
		default:
		}
		// full: discard the oldest snapshot and retry once
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- notes:
		default:
		}
	}
}

// Subscribers returns the current subscriber count
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
	b.closed = true
}
