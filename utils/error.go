package utils

import "errors"

// Error kinds surfaced by a reconciliation run. Callers match them with errors.Is.
var (
	ErrorConnection    = errors.New("connection error")
	ErrorQuery         = errors.New("query error")
	ErrorSerialization = errors.New("serialization error")
	ErrorAlert         = errors.New("alert error")
	ErrorRunLocked     = errors.New("another reconciliation run holds the lock")
)
