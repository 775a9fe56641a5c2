package broadcast

import (
	"context"
	"sync"
)

// Message carries one broadcast value.
type Message[T any] struct {
	Data T
}

// Subscriber receives messages from a Broadcaster. Safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the delivery channel. It is closed when the
	// subscriber is closed, cancelled or disconnected for falling behind.
	Receive(ctx context.Context) <-chan Message[T]

	// Close is idempotent.
	Close() error
}

// Broadcaster fans messages out to subscribers without blocking on slow ones.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber that lives until ctx is done or it is closed.
	Subscribe(ctx context.Context, opts ...SubscribeOption[T]) Subscriber[T]

	// Broadcast offers msg to every matching subscriber.
	Broadcast(ctx context.Context, msg Message[T]) error

	// Close closes every subscriber. Later subscriptions come back closed.
	Close() error
}

// SubscribeOption configures one subscription.
type SubscribeOption[T any] func(*subscriber[T])

// WithFilter only delivers messages for which keep returns true.
func WithFilter[T any](keep func(T) bool) SubscribeOption[T] {
	return func(s *subscriber[T]) {
		s.filter = keep
	}
}

type subscriber[T any] struct {
	mu     sync.RWMutex
	ch     chan Message[T]
	filter func(T) bool
	closed bool
}

func newSubscriber[T any](bufferSize int, opts ...SubscribeOption[T]) *subscriber[T] {
	s := &subscriber[T]{ch: make(chan Message[T], bufferSize)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *subscriber[T]) Receive(context.Context) <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *subscriber[T]) wants(msg Message[T]) bool {
	return s.filter == nil || s.filter(msg.Data)
}

// offer reports false when the subscriber is closed or its buffer is full.
func (s *subscriber[T]) offer(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
