// Package service implements the booking rules: slot classification, the
// per-service capacity ledger, admission of new reservations, the status
// lifecycle and notification fan-out.  Storage, messaging and real-time
// delivery are reached through the small interfaces declared here.
package service

import (
	"context"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/repository"
)

// ReservationStore is the persistence contract.  UpdateByID returns the
// record as stored and repository.ErrNotFound for an unknown id.
type ReservationStore interface {
	Find(ctx context.Context, f repository.ReservationFilter) ([]*model.Reservation, error)
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	Insert(ctx context.Context, r *model.Reservation) error
	UpdateByID(ctx context.Context, id string, r *model.Reservation) (*model.Reservation, error)
}

// SettingsStore holds the versioned restaurant configuration.
type SettingsStore interface {
	Get(ctx context.Context) (model.Settings, error)
	Put(ctx context.Context, s model.Settings) (model.Settings, error)
}

// EventPublisher pushes a named event to every connected listener.  There is
// no acknowledgement.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// Outbox accepts notification jobs for asynchronous delivery.
type Outbox interface {
	Submit(ctx context.Context, job model.NotificationJob) error
}

// Real-time event names.
const (
	EventNewReservation    = "new-reservation"
	EventUpdateReservation = "update-reservation"
	EventCancelReservation = "cancel-reservation"
)

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) {}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event string, payload any)

func (f PublisherFunc) Publish(ctx context.Context, event string, payload any) { f(ctx, event, payload) }

// MultiPublisher forwards each event to every publisher in order.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event string, payload any) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, event, payload)
		}
	}
}
