package teacher

import "errors"

var (
	ErrAlreadyRunning = errors.New("teacher server is already running")
	ErrShuttingDown   = errors.New("teacher server is shutting down")
)
