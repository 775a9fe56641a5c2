package inbox

import (
	"errors"
	"time"
)

var (
	ErrItemNotFound = errors.New("inbox: item not found")
	ErrInvalidItem  = errors.New("inbox: item requires id and recipient")
)

// Item is one in-app notification shown in a recipient's inbox.
type Item struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipient_id"`
	EventType   string         `json:"event_type"`
	TemplateID  string         `json:"template_id"`
	Data        map[string]any `json:"data,omitempty"`
	Read        bool           `json:"read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
}

// Expired reports whether the item is past its expiry at now.
func (i Item) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

func (i *Item) markRead(at time.Time) {
	if i.Read {
		return
	}
	i.Read = true
	i.ReadAt = &at
}
