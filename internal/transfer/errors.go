package transfer

import "errors"

var (
	ErrCreateFailed = errors.New("cannot create transfer destination")
	ErrNotAFile     = errors.New("not a regular file")
)
