package notify

import (
	"context"
	"time"
)

// FlowStore reads configured flows.
type FlowStore interface {
	// ListFlows returns the flows for an event type and recipient class in
	// storage order. Implementations may include inactive flows.
	ListFlows(ctx context.Context, eventType string, class RecipientClass) ([]Flow, error)

	// GetFlow returns a single flow or ErrFlowNotFound.
	GetFlow(ctx context.Context, flowID string) (*Flow, error)
}

// PreferenceStore reads and writes recipient preferences.
type PreferenceStore interface {
	// FindPreference returns nil without error when no row exists.
	FindPreference(ctx context.Context, recipientID, eventType string, channel Channel) (*Preference, error)

	// SetPreference upserts a preference row.
	SetPreference(ctx context.Context, pref Preference) error
}

// DeliveryLog is the append-only audit trail.
type DeliveryLog interface {
	AppendDelivery(ctx context.Context, entry DeliveryLogEntry) error
}

// DeliveryReader lists audit entries for collaborators reading delivery state.
type DeliveryReader interface {
	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]DeliveryLogEntry, error)
}

// DeliveryFilter narrows ListDeliveries. Zero fields are ignored.
type DeliveryFilter struct {
	RecipientID string
	FlowID      string
	EventType   string
	Status      DeliveryStatus
	Since       *time.Time
	Limit       int // 0 = no limit
	Offset      int
}

// Store is implemented by backends that hold every table the engine reads or appends to.
type Store interface {
	FlowStore
	PreferenceStore
	DeliveryLog
	DeliveryReader
}

// Audience resolves recipient sets for fan-out helpers.
type Audience interface {
	// Followers returns everyone following the given entity.
	Followers(ctx context.Context, entityID string) ([]Recipient, error)

	// Admins returns the administrator audience.
	Admins(ctx context.Context) ([]Recipient, error)
}
