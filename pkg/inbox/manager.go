package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/civicworks/notifyhub/pkg/logger"
)

// Manager stores inbox items and pushes them to live subscribers.
type Manager struct {
	storage Storage
	live    Deliverer
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLiveDeliverer sets where stored items are pushed for live clients.
func WithLiveDeliverer(d Deliverer) ManagerOption {
	return func(m *Manager) {
		m.live = d
	}
}

// WithItemTTL gives new items an expiry. Zero keeps items forever.
func WithItemTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates an inbox manager over storage.
func NewManager(storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage: storage,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Put stores item and then attempts live delivery. A failed live push is
// logged only; the item stays in the inbox.
func (m *Manager) Put(ctx context.Context, item Item) (Item, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = m.now()
	}
	if m.ttl > 0 && item.ExpiresAt == nil {
		exp := item.CreatedAt.Add(m.ttl)
		item.ExpiresAt = &exp
	}

	if err := m.storage.Create(ctx, item); err != nil {
		return Item{}, fmt.Errorf("failed to store inbox item: %w", err)
	}

	if m.live != nil {
		if err := m.live.Deliver(ctx, item); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelWarn, "live inbox delivery failed, item stored",
				slog.String("item_id", item.ID),
				logger.RecipientID(item.RecipientID),
				logger.Error(err),
			)
		}
	}
	return item, nil
}

func (m *Manager) Get(ctx context.Context, recipientID, itemID string) (*Item, error) {
	return m.storage.Get(ctx, recipientID, itemID)
}

func (m *Manager) List(ctx context.Context, recipientID string, opts ListOptions) ([]Item, error) {
	return m.storage.List(ctx, recipientID, opts)
}

func (m *Manager) MarkRead(ctx context.Context, recipientID string, itemIDs ...string) error {
	return m.storage.MarkRead(ctx, recipientID, itemIDs...)
}

// MarkAllRead marks every unread item of the recipient as read.
func (m *Manager) MarkAllRead(ctx context.Context, recipientID string) error {
	unread, err := m.storage.List(ctx, recipientID, ListOptions{OnlyUnread: true})
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	ids := make([]string, len(unread))
	for i, it := range unread {
		ids[i] = it.ID
	}
	return m.storage.MarkRead(ctx, recipientID, ids...)
}

func (m *Manager) Delete(ctx context.Context, recipientID string, itemIDs ...string) error {
	return m.storage.Delete(ctx, recipientID, itemIDs...)
}

func (m *Manager) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return m.storage.CountUnread(ctx, recipientID)
}
