package kiosk

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Event types published by the pipeline.
const (
	EventCheckIn = "checkin"
	EventNoFace  = "no_face"
	EventError   = "error"
)

// Event is one broadcast notification about a processed frame.
type Event struct {
	Type    string    `json:"type"`
	Station string    `json:"station"`
	Attempt *Attempt  `json:"attempt,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Broadcaster fans events out to listeners. Slow listeners miss events instead of blocking.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
	closed    bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener registers a new listener channel. On a closed Broadcaster the
// returned channel is already closed.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes ch.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *Broadcaster) SendEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Listeners returns the number of registered listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Close closes every listener. Later AddListener calls return closed channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.listeners {
		close(ch)
	}
	b.listeners = nil
}
