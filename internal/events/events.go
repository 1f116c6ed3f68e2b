// Package events defines the change notifications published by the
// reconciliation engine and a synchronous bus to deliver them.
package events

import (
	"fmt"
	"sync"

	"github.com/1broseidon/winstrip/internal/desktop"
)

// Kind identifies an event type.
type Kind int

const (
	WindowCreated Kind = iota + 1
	WindowDestroyed
	WindowTitleChanged
	WindowRectangleChanged
	WindowStateChanged
	ForegroundWindowChanged
)

func (k Kind) String() string {
	switch k {
	case WindowCreated:
		return "WindowCreated"
	case WindowDestroyed:
		return "WindowDestroyed"
	case WindowTitleChanged:
		return "WindowTitleChanged"
	case WindowRectangleChanged:
		return "WindowRectangleChanged"
	case WindowStateChanged:
		return "WindowStateChanged"
	case ForegroundWindowChanged:
		return "ForegroundWindowChanged"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event carries a window snapshot taken when the event was emitted. Window is
// nil only for a ForegroundWindowChanged event whose new foreground window is
// not tracked or not manageable.
type Event struct {
	Kind   Kind
	Window *desktop.Window
}

func (e Event) String() string {
	if e.Window == nil {
		return e.Kind.String() + "(none)"
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.Window)
}

// Subscriber receives events in emission order.
type Subscriber interface {
	HandleEvent(Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event)

// HandleEvent calls f(e).
func (f SubscriberFunc) HandleEvent(e Event) { f(e) }

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(Event)
}

// Bus delivers each published event to every subscriber, synchronously and in
// subscription order, on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id  int
	sub Subscriber
}

var _ Publisher = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers s and returns a function that removes it.
func (b *Bus) Subscribe(s Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, sub: s})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, entry := range b.subs {
				if entry.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to all current subscribers. Subscriptions changed while
// e is being delivered take effect from the next event.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, entry := range subs {
		entry.sub.HandleEvent(e)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Recorder is a Subscriber that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// HandleEvent appends e.
func (r *Recorder) HandleEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns the recorded events and clears the recorder.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}
