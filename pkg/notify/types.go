package notify

import (
	"time"
)

// Channel names a delivery medium.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelPush    Channel = "push"
	ChannelInApp   Channel = "in_app"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
)

// Flow is an administrator-configured delivery rule.
type Flow struct {
	ID             string         `json:"id" yaml:"id"`
	EventType      string         `json:"event_type" yaml:"event_type"`
	RecipientClass RecipientClass `json:"recipient_class" yaml:"recipient_class"`
	Channel        Channel        `json:"channel" yaml:"channel"`
	TemplateID     string         `json:"template_id" yaml:"template_id"`
	Priority       int            `json:"priority" yaml:"priority"`
	DelayMinutes   int            `json:"delay_minutes" yaml:"delay_minutes"`
	Condition      map[string]any `json:"condition,omitempty" yaml:"condition,omitempty"`
	IsActive       bool           `json:"is_active" yaml:"is_active"`
}

// Delay returns the configured delay as a duration. Negative values count as zero.
func (f Flow) Delay() time.Duration {
	if f.DelayMinutes <= 0 {
		return 0
	}
	return time.Duration(f.DelayMinutes) * time.Minute
}

// Preference is a per-recipient opt-in or opt-out for one event type and channel.
type Preference struct {
	RecipientID string  `json:"recipient_id"`
	EventType   string  `json:"event_type"`
	Channel     Channel `json:"channel"`
	IsEnabled   bool    `json:"is_enabled"`
}

// ScheduledJob is a deferred delivery waiting for ScheduledAt.
// It travels as the payload of a queue task.
type ScheduledJob struct {
	ID             string         `json:"id"`
	FlowID         string         `json:"flow_id"`
	RecipientID    string         `json:"recipient_id"`
	RecipientClass RecipientClass `json:"recipient_class"`
	EventType      string         `json:"event_type"`
	Channel        Channel        `json:"channel"`
	TemplateID     string         `json:"template_id"`
	TemplateData   TemplateData   `json:"template_data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ScheduledAt    time.Time      `json:"scheduled_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Event rebuilds the event the job was scheduled for.
func (j ScheduledJob) Event() Event {
	return Event{
		Type:           j.EventType,
		RecipientID:    j.RecipientID,
		RecipientClass: j.RecipientClass,
		Metadata:       j.Metadata,
	}
}

// DeliveryStatus is the terminal outcome recorded for one attempt.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
	StatusSkipped DeliveryStatus = "skipped"
)

// Skip reasons recorded in DeliveryLogEntry.Reason.
const (
	ReasonPreferenceDisabled    = "preference_disabled"
	ReasonPreferenceUnavailable = "preference_unavailable"
	ReasonConditionNotMet       = "condition_not_met"
	ReasonFlowInactive          = "flow_inactive"
)

// DeliveryLogEntry is one append-only audit record of a delivery attempt.
type DeliveryLogEntry struct {
	ID           string         `json:"id"`
	FlowID       string         `json:"flow_id"`
	RecipientID  string         `json:"recipient_id"`
	EventType    string         `json:"event_type"`
	Channel      Channel        `json:"channel"`
	Status       DeliveryStatus `json:"status"`
	TemplateData TemplateData   `json:"template_data,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Error        string         `json:"error,omitempty"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Outcome is the per-flow terminal state reached during one Trigger call.
type Outcome string

const (
	OutcomeSkippedPreference Outcome = "skipped_preference"
	OutcomeSkippedCondition  Outcome = "skipped_condition"
	OutcomeScheduled         Outcome = "scheduled"
	OutcomeSent              Outcome = "sent"
	OutcomeFailed            Outcome = "failed"
)
