// Package channel provides the push-based notification primitive the engine
// publishes composed marker frames through.
package channel

import "sync"

// Broadcaster fans a stream of values out to any number of subscribers.
// Each subscriber owns a latest-wins mailbox: a slow consumer never blocks
// the publisher, it just skips intermediate values. The most recent
// published value is replayed to late subscribers so nobody observes a
// blank initial frame. Publishing after Close is a silent no-op.
type Broadcaster[T any] struct {
	mu        sync.Mutex
	subs      map[int]chan T
	nextID    int
	latest    T
	hasLatest bool
	closed    bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T)}
}

// Publish delivers v to every subscriber and records it for replay.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = v
	b.hasLatest = true
	for _, ch := range b.subs {
		deliver(ch, v)
	}
}

// deliver places v into a mailbox, displacing a stale undelivered value.
func deliver[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber, immediately seeding its channel
// with the most recent value when one exists. The returned cancel function
// detaches the subscriber and closes its channel; it is idempotent.
// Subscribing to a closed broadcaster yields an already-closed channel.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.hasLatest {
		ch <- b.latest
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Latest returns the most recently published value, if any.
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.hasLatest
}

// Close detaches and closes every subscriber channel. Safe to call
// repeatedly; subsequent publishes are dropped.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
