// Package notify provides the per-component publish/subscribe channel used
// by the simulation core to announce state changes.
package notify

import "sync"

// Kind names an event.
type Kind string

// Event kinds emitted by the simulation core.
const (
	FoldApplied    Kind = "fold.applied"
	FoldUndone     Kind = "fold.undone"
	FoldRedone     Kind = "fold.redone"
	FoldsCleared   Kind = "folds.cleared"
	DyeApplied     Kind = "dye.applied"
	DyeCleared     Kind = "dye.cleared"
	UnfoldStarted  Kind = "unfold.started"
	UnfoldStep     Kind = "unfold.step"
	UnfoldComplete Kind = "unfold.complete"
)

// Event is one notification. Payload is a snapshot owned by the receiver.
type Event struct {
	Kind    Kind
	Payload any
}

// Handler receives events synchronously on the publishing goroutine.
type Handler func(Event)

type subscription struct {
	id   uint64
	kind Kind // empty matches every kind
	fn   Handler
}

// Bus dispatches events to subscribers in subscription order.
// The zero value is ready to use.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

// Subscribe registers h for events of the given kind and returns a function
// that removes the subscription. Calling the returned function twice is safe.
func (b *Bus) Subscribe(kind Kind, h Handler) (unsubscribe func()) {
	return b.add(kind, h)
}

// SubscribeAll registers h for every event kind.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	return b.add("", h)
}

func (b *Bus) add(kind Kind, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, fn: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to every matching subscriber. Handlers may
// subscribe or unsubscribe while being called.
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	ev := Event{Kind: kind, Payload: payload}
	for _, s := range subs {
		if s.kind == "" || s.kind == kind {
			s.fn(ev)
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
