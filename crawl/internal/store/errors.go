package store

import "errors"

// ErrNotFound is returned when an operation references an unknown URL.
var ErrNotFound = errors.New("crawl: link not found")

// ErrInvalidTransition is returned when a status precondition is violated,
// e.g. resetting a record that is not failed.
var ErrInvalidTransition = errors.New("crawl: invalid status transition")
