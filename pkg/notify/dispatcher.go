package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/civicworks/notifyhub/pkg/logger"
)

// DefaultSendTimeout bounds a single channel send.
const DefaultSendTimeout = 5 * time.Second

// Dispatcher performs channel sends and writes exactly one audit entry per attempt.
type Dispatcher struct {
	prefs       *Preferences
	policy      PreferencePolicy
	channels    map[Channel]ChannelSender
	log         DeliveryLog
	sendTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithChannel registers the sender for a channel, replacing any previous one.
func WithChannel(channel Channel, sender ChannelSender) DispatcherOption {
	return func(d *Dispatcher) {
		if sender != nil {
			d.channels[channel] = sender
		}
	}
}

// WithSendTimeout bounds each channel send.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// WithPreferencePolicy sets the behaviour for unreadable preferences.
func WithPreferencePolicy(policy PreferencePolicy) DispatcherOption {
	return func(d *Dispatcher) {
		if policy == FailOpen || policy == FailClosed {
			d.policy = policy
		}
	}
}

// WithDispatcherClock overrides the wall clock used for SentAt and CreatedAt.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher. Channels are registered with WithChannel.
func NewDispatcher(prefs *Preferences, log DeliveryLog, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		prefs:       prefs,
		policy:      FailOpen,
		channels:    make(map[Channel]ChannelSender),
		log:         log,
		sendTimeout: DefaultSendTimeout,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Channels returns the registered channel names.
func (d *Dispatcher) Channels() []Channel {
	return slices.Sorted(maps.Keys(d.channels))
}

// Dispatch runs the preference check, the condition check and the channel
// send for one flow, recording the outcome. It never returns an error: every
// failure ends up as a failed entry in the delivery log.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event, flow Flow, data TemplateData) DeliveryLogEntry {
	if reason := d.admit(ctx, ev, flow); reason != "" {
		return d.record(ctx, d.entry(ev, flow, data, StatusSkipped, reason, nil))
	}

	if err := d.send(ctx, ev, flow, data); err != nil {
		return d.record(ctx, d.entry(ev, flow, data, StatusFailed, "", err))
	}

	return d.record(ctx, d.entry(ev, flow, data, StatusSent, "", nil))
}

// admit returns the skip reason for a flow, or "" when it may proceed.
func (d *Dispatcher) admit(ctx context.Context, ev Event, flow Flow) string {
	enabled, err := d.prefs.IsEnabled(ctx, ev.RecipientID, ev.Type, flow.Channel)
	switch {
	case err != nil && d.policy == FailClosed:
		d.logger.LogAttrs(ctx, slog.LevelWarn, "preference lookup failed, skipping flow",
			logger.FlowID(flow.ID),
			logger.RecipientID(ev.RecipientID),
			logger.Error(err),
		)
		return ReasonPreferenceUnavailable
	case err != nil:
		d.logger.LogAttrs(ctx, slog.LevelWarn, "preference lookup failed, treating as enabled",
			logger.FlowID(flow.ID),
			logger.RecipientID(ev.RecipientID),
			logger.Error(err),
		)
	case !enabled:
		return ReasonPreferenceDisabled
	}

	if !Evaluate(flow.Condition, ev.Metadata) {
		return ReasonConditionNotMet
	}
	return ""
}

// send calls the channel sender under the send timeout. A sender that ignores
// cancellation is abandoned when the timeout fires; a panicking sender counts
// as a failed send.
func (d *Dispatcher) send(ctx context.Context, ev Event, flow Flow, data TemplateData) error {
	sender, ok := d.channels[flow.Channel]
	if !ok {
		return fmt.Errorf("%w: %w: %q", ErrChannelDelivery, ErrUnknownChannel, flow.Channel)
	}

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	msg := Message{
		Channel:     flow.Channel,
		RecipientID: ev.RecipientID,
		EventType:   ev.Type,
		TemplateID:  flow.TemplateID,
		Data:        maps.Clone(data),
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in %s sender: %v", flow.Channel, r)
			}
		}()
		done <- sender.Send(ctx, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Join(ErrChannelDelivery, err)
		}
		return nil
	case <-ctx.Done():
		return errors.Join(ErrChannelDelivery, ctx.Err())
	}
}

func (d *Dispatcher) entry(ev Event, flow Flow, data TemplateData, status DeliveryStatus, reason string, err error) DeliveryLogEntry {
	now := d.now()
	e := DeliveryLogEntry{
		ID:           uuid.New().String(),
		FlowID:       flow.ID,
		RecipientID:  ev.RecipientID,
		EventType:    ev.Type,
		Channel:      flow.Channel,
		Status:       status,
		TemplateData: data,
		Reason:       reason,
		CreatedAt:    now,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if status == StatusSent {
		e.SentAt = &now
	}
	return e
}

// record appends the entry to the audit log. A failed write is logged and the
// entry is still returned to the caller.
func (d *Dispatcher) record(ctx context.Context, e DeliveryLogEntry) DeliveryLogEntry {
	level := slog.LevelInfo
	if e.Status == StatusFailed {
		level = slog.LevelError
	}
	d.logger.LogAttrs(ctx, level, "delivery attempt recorded",
		logger.FlowID(e.FlowID),
		logger.RecipientID(e.RecipientID),
		logger.EventType(e.EventType),
		logger.Channel(string(e.Channel)),
		logger.Status(string(e.Status)),
		slog.String("reason", e.Reason),
		slog.String("delivery_error", e.Error),
	)

	if err := d.log.AppendDelivery(ctx, e); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "failed to append delivery log entry",
			logger.FlowID(e.FlowID),
			logger.RecipientID(e.RecipientID),
			logger.Error(errors.Join(ErrStorage, err)),
		)
	}
	return e
}
