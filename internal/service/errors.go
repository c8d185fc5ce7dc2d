package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/table-booking/internal/model"
)

// Sentinels matched with errors.Is.  Each typed error below unwraps to one.
var (
	ErrValidation         = errors.New("validation failed")
	ErrSlotRejected       = errors.New("slot rejected")
	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrNotFound           = errors.New("reservation not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPersistence        = errors.New("persistence failure")
	ErrNotification       = errors.New("notification failure")
	ErrSettingsConflict   = errors.New("settings were changed by someone else")
	ErrAdmissionLockTaken = errors.New("admission lock not acquired")
)

// ValidationError lists every field problem found in a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SlotRejectedError explains why a (date, time) pair cannot be booked.
type SlotRejectedError struct {
	Reason string
}

func (e *SlotRejectedError) Error() string { return e.Reason }

func (e *SlotRejectedError) Unwrap() error { return ErrSlotRejected }

// CapacityExceededError carries the counts behind a full service.
type CapacityExceededError struct {
	Service   model.Service
	Current   int
	Max       int
	Requested int
}

func (e *CapacityExceededError) Error() string {
	remaining := e.Max - e.Current
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf(
		"The %s service is full (%d/%d covers already booked, %d remaining); %d more would exceed the limit. Please try another slot.",
		e.Service, e.Current, e.Max, remaining, e.Requested,
	)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// NotFoundError names the missing reservation.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("reservation %s not found", e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidTransitionError is returned for edges missing from the lifecycle
// graph, including any move out of cancelled or completed.
type InvalidTransitionError struct {
	From model.Status
	To   model.Status
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("reservation is already %s", e.From)
	}
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PersistenceError wraps a storage failure that happened after validation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

// Unwrap exposes both the sentinel and the driver error.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// NotificationError is logged only; it never reaches an HTTP client.
type NotificationError struct {
	Channel   string
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s to %s: %v", e.Channel, e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() []error { return []error{ErrNotification, e.Err} }
