package wire

import "errors"

// Codec errors. Both are fatal to the connection they occur on.
var (
	ErrPayloadTooLarge  = errors.New("message payload exceeds 32 MiB limit")
	ErrMalformedPayload = errors.New("malformed message payload")
)
