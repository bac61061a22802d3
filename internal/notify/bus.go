// Package notify fans published values out to independent subscribers.
//
// Each subscriber owns an unbounded queue, so Publish never blocks and a
// subscriber that stops reading only costs memory until it is closed.
package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Next once the subscription or its bus is
// closed and every queued value has been delivered.
var ErrClosed = errors.New("notify: subscription closed")

// Filter decides whether a subscriber receives a value and may narrow it.
// Returning false drops the value for that subscriber.
type Filter[T any] func(T) (T, bool)

// Bus delivers published values to subscribers in publish order.
// It is safe for concurrent use.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a subscriber. A nil filter receives everything.
// Subscribing to a closed bus returns an already closed subscription.
func (b *Bus[T]) Subscribe(filter Filter[T]) *Subscription[T] {
	sub := &Subscription[T]{bus: b, filter: filter, q: newQueue[T]()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.q.close()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish enqueues v for every subscriber whose filter accepts it.
// It returns the number of subscribers that received it.
func (b *Bus[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for sub := range b.subs {
		item := v
		if sub.filter != nil {
			var ok bool
			if item, ok = sub.filter(v); !ok {
				continue
			}
		}
		if sub.q.push(item) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of live subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscription. Later Subscribe calls return closed
// subscriptions.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.q.close()
		delete(b.subs, sub)
	}
}

func (b *Bus[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// Subscription is one subscriber's view of a Bus.
type Subscription[T any] struct {
	bus    *Bus[T]
	filter Filter[T]
	q      *queue[T]
}

// Next blocks until a value is available, ctx is done, or the
// subscription is closed and drained.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		item, ok, closed := s.q.tryPop()
		if ok {
			return item, nil
		}
		if closed {
			return zero, ErrClosed
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-s.q.wait():
		}
	}
}

// TryNext returns a queued value without blocking.
func (s *Subscription[T]) TryNext() (T, bool) {
	item, ok, _ := s.q.tryPop()
	return item, ok
}

// Pending returns the number of queued values.
func (s *Subscription[T]) Pending() int {
	return s.q.len()
}

// Close detaches the subscription from its bus. Queued values can still
// be read with Next until drained.
func (s *Subscription[T]) Close() {
	s.bus.remove(s)
	s.q.close()
}
