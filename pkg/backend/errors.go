package backend

import "errors"

// ErrNotFound is returned when the backend has no resource for the
// requested token or id
var ErrNotFound = errors.New("backend: not found")

// ErrMockNotFound is returned by the mock client for unknown tokens and ids
var ErrMockNotFound = ErrNotFound
