package inbox

import (
	"context"
	"log/slog"
	"sync"

	"github.com/civicworks/notifyhub/pkg/broadcast"
	"github.com/civicworks/notifyhub/pkg/cache"
	"github.com/civicworks/notifyhub/pkg/logger"
)

// Deliverer pushes a freshly stored item to connected clients.
type Deliverer interface {
	Deliver(ctx context.Context, item Item) error
}

// LiveFeed fans items out to per-recipient in-memory broadcasters. Only the
// most recently active recipients keep a broadcaster; evicted ones are closed,
// which also closes their subscribers.
type LiveFeed struct {
	mu         sync.Mutex
	feeds      *cache.LRUCache[string, broadcast.Broadcaster[Item]]
	bufferSize int
	capacity   int
	logger     *slog.Logger
}

// LiveFeedOption configures a LiveFeed.
type LiveFeedOption func(*LiveFeed)

// WithFeedCapacity caps the number of recipients with an open broadcaster.
func WithFeedCapacity(n int) LiveFeedOption {
	return func(f *LiveFeed) {
		if n > 0 {
			f.capacity = n
		}
	}
}

// WithFeedLogger sets the logger for the LiveFeed.
func WithFeedLogger(l *slog.Logger) LiveFeedOption {
	return func(f *LiveFeed) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewLiveFeed creates a feed whose subscribers buffer up to bufferSize items.
func NewLiveFeed(bufferSize int, opts ...LiveFeedOption) *LiveFeed {
	f := &LiveFeed{
		bufferSize: bufferSize,
		capacity:   10000,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.feeds = cache.NewLRUCache[string, broadcast.Broadcaster[Item]](f.capacity)
	f.feeds.SetEvictCallback(func(recipientID string, b broadcast.Broadcaster[Item]) {
		if err := b.Close(); err != nil {
			f.logger.LogAttrs(context.Background(), slog.LevelError, "failed to close evicted inbox feed",
				logger.RecipientID(recipientID),
				logger.Error(err),
			)
		}
	})
	return f
}

func (f *LiveFeed) feed(recipientID string) broadcast.Broadcaster[Item] {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.feeds.Get(recipientID)
	if !ok {
		b = broadcast.NewMemoryBroadcaster[Item](f.bufferSize)
		f.feeds.Put(recipientID, b)
	}
	return b
}

// Deliver broadcasts item to the recipient's live subscribers, if any.
func (f *LiveFeed) Deliver(ctx context.Context, item Item) error {
	return f.feed(item.RecipientID).Broadcast(ctx, broadcast.Message[Item]{Data: item})
}

// Subscribe streams new items for recipientID until ctx ends or the
// subscriber is closed. SSE and WebSocket handlers sit on top of this.
func (f *LiveFeed) Subscribe(ctx context.Context, recipientID string) broadcast.Subscriber[Item] {
	return f.feed(recipientID).Subscribe(ctx)
}

// Close closes every open broadcaster.
func (f *LiveFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.feeds.Clear()
	return nil
}
