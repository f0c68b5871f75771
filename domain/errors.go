package domain

import "errors"

// ErrNotFound is returned by the store when no session exists for the
// requested id.
var ErrNotFound = errors.New("session not found")
