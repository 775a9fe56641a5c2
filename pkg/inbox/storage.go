package inbox

import (
	"context"
	"time"
)

// Storage persists inbox items per recipient.
type Storage interface {
	Create(ctx context.Context, item Item) error
	Get(ctx context.Context, recipientID, itemID string) (*Item, error)

	// List returns unexpired items, newest first.
	List(ctx context.Context, recipientID string, opts ListOptions) ([]Item, error)

	MarkRead(ctx context.Context, recipientID string, itemIDs ...string) error
	Delete(ctx context.Context, recipientID string, itemIDs ...string) error
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Limit      int // 0 = no limit
	Offset     int
	OnlyUnread bool
	EventTypes []string
	Since      *time.Time
}
