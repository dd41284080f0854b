package storage

import "errors"

// ErrNotFound is returned by lookups for sessions that do not exist.
var ErrNotFound = errors.New("session not found")
