// Package repository defines the persistence collaborators of the booking
// service and the sentinel errors they share.  Handlers and services use
// errors.Is against these values instead of driver specific errors such as
// sql.ErrNoRows or mongo.ErrNoDocuments.
package repository

import "errors"

// ErrNotFound is returned when no record matches the requested ID.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write is based on a stale version of the
// stored document.  Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
