package domain

import (
	"errors"
	"fmt"
)

// ErrOffline marks an operation that could not reach the server at all.
// Both the transport-level sentinel status 0 and the edge cache's synthetic
// 503 collapse into this condition.
var ErrOffline = errors.New("server unreachable")

// RemoteError is a structured error response the server actually produced.
// It is passed through unchanged and never retried locally.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}
