package channels

import "errors"

var (
	ErrTemplateNotFound = errors.New("channels: template not found")
	ErrInvalidTemplate  = errors.New("channels: invalid template")
	ErrNoAddress        = errors.New("channels: recipient has no address")
	ErrInvalidGateway   = errors.New("channels: invalid gateway configuration")
)
