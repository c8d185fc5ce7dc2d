package model

import (
	"strings"
	"time"
)

// Reservation records a party's booking for one service on one calendar day.
// It is the only persisted entity; cancellation is a status change and the
// document is never removed so visit history stays available.
//
// Fields:
//
//	ID              – opaque identifier assigned at creation.
//	Date            – calendar day, stored as midnight UTC.
//	Time            – arrival time of day, "HH:MM".
//	Source          – channel the booking came through.
//	Status          – lifecycle state (pending, confirmed, cancelled, completed).
//	Table           – optional table label set by staff; not used by admission.
type Reservation struct {
	ID              string    `json:"id" bson:"_id"`
	CustomerName    string    `json:"customerName" bson:"customer_name"`
	PhoneNumber     string    `json:"phoneNumber" bson:"phone_number"`
	Email           string    `json:"email,omitempty" bson:"email,omitempty"`
	NumberOfPeople  int       `json:"numberOfPeople" bson:"number_of_people"`
	Date            time.Time `json:"date" bson:"date"`
	Time            string    `json:"time" bson:"time"`
	SpecialRequests string    `json:"specialRequests" bson:"special_requests"`
	Source          Source    `json:"source" bson:"source"`
	Status          Status    `json:"status" bson:"status"`
	Table           *string   `json:"table" bson:"table,omitempty"`
	Notes           string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updated_at"`
}

// Touch refreshes UpdatedAt; every mutation goes through it.
func (r *Reservation) Touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}

// Clone returns a copy that shares nothing mutable with r.
func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	c := *r
	if r.Table != nil {
		t := *r.Table
		c.Table = &t
	}
	return &c
}

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var allowedStatuses = map[string]Status{
	string(StatusPending):   StatusPending,
	string(StatusConfirmed): StatusConfirmed,
	string(StatusCancelled): StatusCancelled,
	string(StatusCompleted): StatusCompleted,
}

// ParseStatus returns the canonical status for raw, ignoring case and
// surrounding spaces.
func ParseStatus(raw string) (Status, bool) {
	s, ok := allowedStatuses[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// transitions lists the edges of the lifecycle graph.  Completion is
// reachable from any non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusCompleted},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Source is the channel a reservation originated from.
type Source string

const (
	SourceWebsite Source = "website"
	SourceMobile  Source = "mobile"
	SourcePhone   Source = "phone"
	SourceWalkIn  Source = "walk-in"
	SourceDesktop Source = "desktop"
)

// Sources lists every accepted channel.
var Sources = []Source{SourceWebsite, SourceMobile, SourcePhone, SourceWalkIn, SourceDesktop}

// ParseSource returns the canonical source for raw.
func ParseSource(raw string) (Source, bool) {
	s := Source(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Sources {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Service is a named seating period with its own window and cap.
type Service string

const (
	ServiceLunch  Service = "lunch"
	ServiceDinner Service = "dinner"
)

// Services lists the services in the order they happen during the day.
var Services = []Service{ServiceLunch, ServiceDinner}
