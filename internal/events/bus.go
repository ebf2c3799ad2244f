// Package events carries generation progress from the pipeline to
// whoever is watching: websocket sessions, the CLI progress display,
// tests.
package events

import (
	"sync"
	"time"

	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// Kind distinguishes what an event reports.
type Kind string

const (
	KindPhase     Kind = "phase_update"
	KindAgent     Kind = "agent_status"
	KindChapter   Kind = "chapter_update"
	KindCompleted Kind = "completed"
	KindError     Kind = "error"
	KindCancelled Kind = "cancelled"
)

// Event is one progress notification for one session.
type Event struct {
	SessionID string      `json:"session_id"`
	Kind      Kind        `json:"kind"`
	Phase     story.Phase `json:"phase,omitempty"`
	Progress  float64     `json:"progress"`
	AgentName string      `json:"agent_name,omitempty"`
	Message   string      `json:"message,omitempty"`
	Chapter   int         `json:"chapter,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const subscriberBuffer = 64

// Bus fans events out to per-session subscribers. Delivery is
// non-blocking: a subscriber that falls behind its channel buffer
// loses events rather than stalling the pipeline. The latest event per
// session is retained so late subscribers can catch up.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	latest      map[string]Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[chan Event]struct{}),
		latest:      make(map[string]Event),
	}
}

// Publish stamps and delivers the event to every subscriber of its
// session.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	b.latest[ev.SessionID] = ev
	for ch := range b.subscribers[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			// subscriber is too slow, drop this event for them
		}
	}
	b.mu.Unlock()
}

// Subscribe registers a watcher for one session's events. Call
// Unsubscribe when done to avoid leaks.
func (b *Bus) Subscribe(sessionID string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	if b.subscribers[sessionID] == nil {
		b.subscribers[sessionID] = make(map[chan Event]struct{})
	}
	b.subscribers[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it. Safe to call
// with a channel that was already removed.
func (b *Bus) Unsubscribe(sessionID string, ch chan Event) {
	b.mu.Lock()
	subs := b.subscribers[sessionID]
	if _, ok := subs[ch]; !ok {
		b.mu.Unlock()
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(b.subscribers, sessionID)
	}
	b.mu.Unlock()
	close(ch)
}

// Latest returns the most recent event published for a session, if
// any.
func (b *Bus) Latest(sessionID string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev, ok := b.latest[sessionID]
	return ev, ok
}

// Forget drops the retained event and any remaining subscribers for a
// session that no longer exists.
func (b *Bus) Forget(sessionID string) {
	b.mu.Lock()
	for ch := range b.subscribers[sessionID] {
		close(ch)
	}
	delete(b.subscribers, sessionID)
	delete(b.latest, sessionID)
	b.mu.Unlock()
}
