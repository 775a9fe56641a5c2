package notify

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/civicworks/notifyhub/pkg/logger"
)

// DefaultBusBuffer is the number of pending broadcasts the Bus holds before dropping.
const DefaultBusBuffer = 256

// BusMessage is the realtime notice published for an accepted event.
type BusMessage struct {
	Name        string         `json:"name"`
	RecipientID string         `json:"recipient_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	At          time.Time      `json:"at"`
}

// Publisher pushes bus messages to live listeners.
type Publisher interface {
	Publish(ctx context.Context, msg BusMessage) error
}

// Broadcaster is the fire-and-forget side the Controller talks to.
type Broadcaster interface {
	Broadcast(ev Event)
}

// Bus decouples broadcasting from the dispatch path. Broadcast never blocks:
// messages go onto a bounded channel drained by a single goroutine, and are
// dropped when the channel is full. There is no delivery guarantee.
type Bus struct {
	publisher Publisher
	queue     chan BusMessage
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusBuffer sets the size of the pending broadcast buffer.
func WithBusBuffer(size int) BusOption {
	return func(b *Bus) {
		if size > 0 {
			b.queue = make(chan BusMessage, size)
		}
	}
}

// WithPublishTimeout bounds each publisher call.
func WithPublishTimeout(d time.Duration) BusOption {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBusLogger sets the logger for the Bus.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus starts a bus draining into publisher. Call Close to stop it.
func NewBus(publisher Publisher, opts ...BusOption) *Bus {
	b := &Bus{
		publisher: publisher,
		queue:     make(chan BusMessage, DefaultBusBuffer),
		timeout:   5 * time.Second,
		logger:    slog.Default(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// Broadcast enqueues a notice for ev. It drops the notice when the buffer is
// full or the bus is closed.
func (b *Bus) Broadcast(ev Event) {
	msg := BusMessage{
		Name:        ev.Type,
		RecipientID: ev.RecipientID,
		Payload:     maps.Clone(ev.Metadata),
		At:          time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.LogAttrs(context.Background(), slog.LevelDebug, "broadcast on closed bus dropped",
			logger.EventType(ev.Type),
		)
		return
	}

	select {
	case b.queue <- msg:
	default:
		b.logger.LogAttrs(context.Background(), slog.LevelWarn, "broadcast buffer full, notice dropped",
			logger.EventType(ev.Type),
			logger.RecipientID(ev.RecipientID),
		)
	}
}

// Close stops accepting broadcasts and waits for pending ones to be published.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.done
	return nil
}

func (b *Bus) run() {
	defer close(b.done)

	for msg := range b.queue {
		b.publish(msg)
	}
}

func (b *Bus) publish(msg BusMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.LogAttrs(ctx, slog.LevelError, "publisher panicked",
				logger.EventType(msg.Name),
				slog.Any("panic", r),
			)
		}
	}()

	if err := b.publisher.Publish(ctx, msg); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "failed to broadcast event",
			logger.EventType(msg.Name),
			logger.RecipientID(msg.RecipientID),
			logger.Error(errors.Join(ErrBroadcast, err)),
		)
	}
}

// NoopBroadcaster discards every broadcast.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Broadcast(Event) {}
