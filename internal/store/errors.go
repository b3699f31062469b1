package store

import "errors"

// ErrNotFound is returned when a record does not exist. The model layer
// translates it into a typed not-found error with the right HTTP status.
var ErrNotFound = errors.New("record not found")
