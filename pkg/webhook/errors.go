package webhook

import "errors"

var (
	ErrDeliveryFailed    = errors.New("webhook: delivery failed")
	ErrInvalidConfig     = errors.New("webhook: invalid configuration")
	ErrPermanentFailure  = errors.New("webhook: permanent failure")
	ErrTemporaryFailure  = errors.New("webhook: temporary failure")
	ErrCircuitOpen       = errors.New("webhook: circuit breaker is open")
	ErrInvalidPayload    = errors.New("webhook: invalid payload")
	ErrInvalidURL        = errors.New("webhook: invalid URL")
	ErrTimeout           = errors.New("webhook: request timeout")
	ErrSignatureMismatch = errors.New("webhook: signature mismatch")
)

// IsCircuitOpen reports whether err came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
