package pgstore

import "errors"

var (
	ErrEncode = errors.New("pgstore: failed to encode json column")
	ErrDecode = errors.New("pgstore: failed to decode json column")
)
