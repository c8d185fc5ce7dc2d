package model

import "time"

// NotificationKind selects which messages the dispatcher composes for a job.
type NotificationKind string

const (
	// NotificationCreated alerts staff and confirms to the customer.
	NotificationCreated NotificationKind = "created"
	// NotificationReminder reminds the customer of an upcoming visit.
	NotificationReminder NotificationKind = "reminder"
)

// NotificationJob is the unit of work handed to the outbox.  It carries a
// snapshot of the reservation so consumers never read the store.
type NotificationJob struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Reservation Reservation      `json:"reservation"`
	SubmittedAt time.Time        `json:"submitted_at"`
}
