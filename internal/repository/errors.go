// Package repository defines error types that are reused across every
// storage backend. These sentinel values allow higher layers such as the
// auth core and the handlers to distinguish failure scenarios without
// knowing which database is behind the interface.
package repository

import "errors"

// ErrNotFound is returned when no document/row matches the lookup. Ids
// that are malformed for a backend (e.g. non-hex Mongo ids) also yield
// ErrNotFound so callers never see driver-specific parse errors.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user is created with an email that is
// already registered. Handlers translate it into a validation failure.
var ErrEmailExists = errors.New("email already exists")

// ErrPlaintextPassword is returned when a user with a pending, unhashed
// password reaches a persistence call. Nothing is written in that case.
var ErrPlaintextPassword = errors.New("refusing to persist unhashed password")
