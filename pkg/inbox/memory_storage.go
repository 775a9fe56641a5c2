package inbox

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStorage keeps inbox items in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]Item
	now   func() time.Time
}

// NewMemoryStorage creates an empty in-memory inbox.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string][]Item),
		now:   time.Now,
	}
}

func (s *MemoryStorage) Create(_ context.Context, item Item) error {
	if item.ID == "" || item.RecipientID == "" {
		return ErrInvalidItem
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	item.Data = maps.Clone(item.Data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.RecipientID] = append(s.items[item.RecipientID], item)
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, recipientID, itemID string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items[recipientID] {
		if it.ID == itemID {
			return &it, nil
		}
	}
	return nil, ErrItemNotFound
}

func (s *MemoryStorage) List(_ context.Context, recipientID string, opts ListOptions) ([]Item, error) {
	now := s.now()

	s.mu.RLock()
	out := make([]Item, 0, len(s.items[recipientID]))
	for _, it := range s.items[recipientID] {
		switch {
		case it.Expired(now):
		case opts.OnlyUnread && it.Read:
		case len(opts.EventTypes) > 0 && !slices.Contains(opts.EventTypes, it.EventType):
		case opts.Since != nil && it.CreatedAt.Before(*opts.Since):
		default:
			out = append(out, it)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Item) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if opts.Offset > 0 {
		out = out[min(opts.Offset, len(out)):]
	}
	if opts.Limit > 0 {
		out = out[:min(opts.Limit, len(out))]
	}
	return out, nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, recipientID string, itemIDs ...string) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items[recipientID]
	for i := range items {
		if slices.Contains(itemIDs, items[i].ID) {
			items[i].markRead(now)
		}
	}
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, recipientID string, itemIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[recipientID] = slices.DeleteFunc(s.items[recipientID], func(it Item) bool {
		return slices.Contains(itemIDs, it.ID)
	})
	return nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, recipientID string) (int, error) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, it := range s.items[recipientID] {
		if !it.Read && !it.Expired(now) {
			n++
		}
	}
	return n, nil
}
