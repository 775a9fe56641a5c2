package notify

import (
	"errors"
	"maps"

	"github.com/civicworks/notifyhub/pkg/validator"
)

// RecipientClass is the audience segment a flow targets.
type RecipientClass string

const (
	ClassArtist RecipientClass = "artist"
	ClassFan    RecipientClass = "fan"
	ClassAdmin  RecipientClass = "admin"
)

// RecipientClasses is the fixed set of accepted recipient classes.
var RecipientClasses = []RecipientClass{ClassArtist, ClassFan, ClassAdmin}

// Valid reports whether c belongs to RecipientClasses.
func (c RecipientClass) Valid() bool {
	for _, known := range RecipientClasses {
		if c == known {
			return true
		}
	}
	return false
}

// Event is an application occurrence addressed to a single recipient.
// Events are treated as immutable once handed to the Controller.
type Event struct {
	Type           string         `json:"event_type"`
	RecipientID    string         `json:"recipient_id"`
	RecipientClass RecipientClass `json:"recipient_class"`
	Metadata       map[string]any `json:"metadata,omitempty"`

	// Key optionally identifies the logical event for deduplication.
	// Empty keys are never deduplicated.
	Key string `json:"key,omitempty"`
}

// NewEvent builds an event for recipientID from a typed kind.
func NewEvent(kind Kind, recipientID string, class RecipientClass) Event {
	return Event{
		Type:           kind.EventType(),
		RecipientID:    recipientID,
		RecipientClass: class,
		Metadata:       kind.Metadata(),
	}
}

// WithKey returns a copy of the event carrying the given idempotency key.
func (e Event) WithKey(key string) Event {
	e.Key = key
	return e
}

// Validate checks the required fields and the recipient class enum.
// The returned error wraps ErrValidation and validator.ValidationErrors.
func (e Event) Validate() error {
	err := validator.Apply(
		validator.RequiredString("event_type", e.Type),
		validator.RequiredString("recipient_id", e.RecipientID),
		validator.RequiredString("recipient_class", string(e.RecipientClass)),
		validator.InList("recipient_class", e.RecipientClass, RecipientClasses),
	)
	if err != nil {
		return errors.Join(ErrValidation, err)
	}
	return nil
}

// TemplateData is the render payload handed to channel senders.
type TemplateData map[string]any

// templateData merges event metadata with the recipient envelope.
// Envelope keys win over metadata keys of the same name.
func templateData(e Event) TemplateData {
	data := make(TemplateData, len(e.Metadata)+3)
	maps.Copy(data, e.Metadata)
	data["event_type"] = e.Type
	data["recipient_id"] = e.RecipientID
	data["recipient_class"] = string(e.RecipientClass)
	return data
}

// Recipient addresses one member of an audience.
type Recipient struct {
	ID    string         `json:"id"`
	Class RecipientClass `json:"class"`
}
