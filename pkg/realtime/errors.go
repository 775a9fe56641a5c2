package realtime

import "errors"

var (
	ErrPublish        = errors.New("realtime: publish failed")
	ErrDecode         = errors.New("realtime: failed to decode message")
	ErrUnknownBackend = errors.New("realtime: unknown backend")
	ErrNoBrokers      = errors.New("realtime: kafka backend requires brokers")
)
