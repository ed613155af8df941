package hub

import "errors"

var (
	ErrNilSession    = errors.New("session cannot be nil")
	ErrSessionClosed = errors.New("session closed")
)
