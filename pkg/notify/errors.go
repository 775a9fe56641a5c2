package notify

import "errors"

var (
	// ErrValidation is returned by Trigger for malformed events. It is the only
	// error Trigger surfaces to its caller.
	ErrValidation = errors.New("notify: invalid event")

	// ErrStorage wraps failures of the underlying flow, preference, log or job store.
	ErrStorage = errors.New("notify: storage unavailable")

	// ErrChannelDelivery wraps a failed or timed out channel send.
	ErrChannelDelivery = errors.New("notify: channel delivery failed")

	// ErrUnknownChannel is recorded when a flow names a channel with no registered sender.
	ErrUnknownChannel = errors.New("notify: no sender registered for channel")

	// ErrBroadcast wraps realtime publisher failures. It is logged and never returned from Trigger.
	ErrBroadcast = errors.New("notify: broadcast failed")

	// ErrFlowNotFound is returned by FlowStore.GetFlow when no flow has the given id.
	ErrFlowNotFound = errors.New("notify: flow not found")

	// ErrInvalidCatalog is returned when a flow catalog document cannot be used.
	ErrInvalidCatalog = errors.New("notify: invalid flow catalog")
)

// IsValidationError reports whether err was produced by event validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
