package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/repository"
	"github.com/iliyamo/table-booking/internal/utils"
)

// Lifecycle owns every status change after a reservation exists.  Changes
// take the admission lock of the reservation's service so events for one
// service leave in the order the writes committed.
type Lifecycle struct {
	store    ReservationStore
	settings SettingsStore
	locker   AdmissionLocker
	events   EventPublisher
	outbox   Outbox
	clock    utils.Clock
	log      *slog.Logger
}

// LifecycleDeps groups the collaborators of a Lifecycle.
type LifecycleDeps struct {
	Store    ReservationStore
	Settings SettingsStore
	Locker   AdmissionLocker
	Events   EventPublisher
	Outbox   Outbox
	Clock    utils.Clock
	Logger   *slog.Logger
}

// NewLifecycle fills unset optional collaborators with no-op defaults.
func NewLifecycle(d LifecycleDeps) *Lifecycle {
	l := &Lifecycle{
		store:    d.Store,
		settings: d.Settings,
		locker:   d.Locker,
		events:   d.Events,
		outbox:   d.Outbox,
		clock:    d.Clock,
		log:      d.Logger,
	}
	if l.locker == nil {
		l.locker = NewLocalLocker()
	}
	if l.events == nil {
		l.events = NopPublisher{}
	}
	if l.clock == nil {
		l.clock = utils.SystemClock{}
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	return l
}

// Created announces a freshly stored reservation.  Callers publish it while
// still holding the admission lock and queue notifications once released.
func (l *Lifecycle) Created(ctx context.Context, r *model.Reservation) {
	l.events.Publish(ctx, EventNewReservation, r.Clone())
}

// Remind queues a reminder for an existing reservation.
func (l *Lifecycle) Remind(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := l.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, &InvalidTransitionError{From: r.Status, To: r.Status}
	}
	if l.outbox == nil {
		return nil, &PersistenceError{Op: "queue reminder", Err: errors.New("no outbox configured")}
	}
	if err := l.outbox.Submit(ctx, l.job(model.NotificationReminder, r)); err != nil {
		return nil, &PersistenceError{Op: "queue reminder", Err: err}
	}
	return r, nil
}

func (l *Lifecycle) job(kind model.NotificationKind, r *model.Reservation) model.NotificationJob {
	return model.NotificationJob{
		ID:          uuid.NewString(),
		Kind:        kind,
		Reservation: *r.Clone(),
		SubmittedAt: l.clock.Now().UTC(),
	}
}

// submit queues a notification job.  Outbox failures are logged and never
// returned.
func (l *Lifecycle) submit(ctx context.Context, kind model.NotificationKind, r *model.Reservation) {
	if l.outbox == nil {
		return
	}
	if err := l.outbox.Submit(ctx, l.job(kind, r)); err != nil {
		l.log.Warn("notification job not queued",
			slog.String("reservation_id", r.ID),
			slog.String("kind", string(kind)),
			slog.Any("err", err))
	}
}

// Transition moves reservation id to status to.  A request for the current
// status of a live reservation changes nothing and publishes nothing.
func (l *Lifecycle) Transition(ctx context.Context, id string, to model.Status) (*model.Reservation, error) {
	s := string(to)
	return l.Update(ctx, id, ReservationPatch{Status: &s})
}

// Cancel is the soft delete: the record stays and its covers stop counting.
func (l *Lifecycle) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	return l.Transition(ctx, id, model.StatusCancelled)
}

// ReservationPatch lists the fields a PUT may change.  Nil means unchanged.
// Table is cleared by an empty string.
type ReservationPatch struct {
	CustomerName    *string `json:"customerName"`
	PhoneNumber     *string `json:"phoneNumber"`
	Email           *string `json:"email"`
	NumberOfPeople  *int    `json:"numberOfPeople"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	SpecialRequests *string `json:"specialRequests"`
	Source          *string `json:"source"`
	Status          *string `json:"status"`
	Table           *string `json:"table"`
	Notes           *string `json:"notes"`
}

// Update applies patch to reservation id.  Fields are validated again and
// a changed slot must still fall in a service window, but capacity is not
// rechecked: staff may knowingly overbook when editing.
func (l *Lifecycle) Update(ctx context.Context, id string, patch ReservationPatch) (*model.Reservation, error) {
	current, err := l.find(ctx, id)
	if err != nil {
		return nil, err
	}
	settings, err := l.settings.Get(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load settings", Err: err}
	}
	policy := NewPolicy(settings.Windows)

	next, _, err := applyPatch(current, patch)
	if err != nil {
		return nil, err
	}

	current, next, status, unlock, err := l.lockSlots(ctx, policy, id, patch, current, next)
	if err != nil {
		return nil, err
	}
	defer unlock()

	statusChanged := false
	if status != "" {
		switch {
		case status == current.Status && !current.Status.Terminal():
		case model.CanTransition(current.Status, status):
			next.Status = status
			statusChanged = true
		default:
			return nil, &InvalidTransitionError{From: current.Status, To: status}
		}
	}

	slotChanged := !next.Date.Equal(current.Date) || next.Time != current.Time
	if slotChanged {
		if _, err := policy.ClassifyStatic(next.Date, next.Time); err != nil {
			return nil, err
		}
	}

	if !statusChanged && sameFields(current, next) {
		return current, nil
	}

	next.Touch(l.clock.Now())
	stored, err := l.store.UpdateByID(ctx, id, next)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &PersistenceError{Op: "update reservation", Err: err}
	}

	event := EventUpdateReservation
	if statusChanged && stored.Status == model.StatusCancelled {
		event = EventCancelReservation
	}
	l.events.Publish(ctx, event, stored.Clone())
	l.log.Info("reservation updated",
		slog.String("reservation_id", id),
		slog.String("status", string(stored.Status)),
		slog.String("event", event))
	return stored, nil
}

// updateLockAttempts bounds how often Update chases a record that keeps
// moving between services while it waits for the locks.
const updateLockAttempts = 3

// lockSlots locks the services of current and next, then re-reads the record
// under the lock.  If another writer moved it to a service whose lock is not
// held, the locks are dropped and taken again for the new slots.
func (l *Lifecycle) lockSlots(ctx context.Context, policy Policy, id string, patch ReservationPatch, current, next *model.Reservation) (*model.Reservation, *model.Reservation, model.Status, func(), error) {
	for attempt := 1; ; attempt++ {
		held := []string{lockKey(policy, current), lockKey(policy, next)}
		unlock, err := lockAll(ctx, l.locker, held...)
		if err != nil {
			return nil, nil, "", nil, err
		}

		current, err = l.find(ctx, id)
		if err != nil {
			unlock()
			return nil, nil, "", nil, err
		}
		var status model.Status
		next, status, err = applyPatch(current, patch)
		if err != nil {
			unlock()
			return nil, nil, "", nil, err
		}
		if holds(held, lockKey(policy, current), lockKey(policy, next)) {
			return current, next, status, unlock, nil
		}
		unlock()
		if attempt == updateLockAttempts {
			return nil, nil, "", nil, fmt.Errorf("%w: reservation %s keeps moving", ErrAdmissionLockTaken, id)
		}
	}
}

func holds(held []string, keys ...string) bool {
	for _, k := range keys {
		if !slices.Contains(held, k) {
			return false
		}
	}
	return true
}

func (l *Lifecycle) find(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := l.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &PersistenceError{Op: "load reservation", Err: err}
	}
	return r, nil
}

// lockKey falls back to a per-day key when the slot no longer classifies.
func lockKey(p Policy, r *model.Reservation) string {
	svc, err := p.ClassifyStatic(r.Date, r.Time)
	if err != nil {
		return utils.CalendarDay(r.Date).Format("2006-01-02") + ":unclassified"
	}
	return AdmissionKey(r.Date, svc)
}

// applyPatch returns a copy of current with patch applied and the requested
// status, if any.  Every field problem is reported at once.
func applyPatch(current *model.Reservation, p ReservationPatch) (*model.Reservation, model.Status, error) {
	next := current.Clone()
	var problems []string

	if p.CustomerName != nil {
		next.CustomerName = strings.TrimSpace(*p.CustomerName)
		if next.CustomerName == "" {
			problems = append(problems, "customerName is required")
		}
	}
	if p.PhoneNumber != nil {
		next.PhoneNumber = strings.TrimSpace(*p.PhoneNumber)
		if next.PhoneNumber == "" {
			problems = append(problems, "phoneNumber is required")
		}
	}
	if p.Email != nil {
		next.Email = strings.TrimSpace(*p.Email)
		if next.Email != "" && !strings.Contains(next.Email, "@") {
			problems = append(problems, "email is not a valid address")
		}
	}
	if p.NumberOfPeople != nil {
		next.NumberOfPeople = *p.NumberOfPeople
		if next.NumberOfPeople < 1 {
			problems = append(problems, "numberOfPeople must be at least 1")
		}
	}
	if p.Date != nil {
		d, err := utils.ParseCalendarDate(*p.Date)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			next.Date = d
		}
	}
	if p.Time != nil {
		t := strings.TrimSpace(*p.Time)
		if _, err := utils.MinutesSinceMidnight(t); err != nil {
			problems = append(problems, err.Error())
		} else {
			next.Time = t
		}
	}
	if p.SpecialRequests != nil {
		next.SpecialRequests = *p.SpecialRequests
	}
	if p.Source != nil {
		src, ok := model.ParseSource(*p.Source)
		if !ok {
			problems = append(problems, "source must be one of website, mobile, phone, walk-in, desktop")
		} else {
			next.Source = src
		}
	}
	if p.Table != nil {
		if t := strings.TrimSpace(*p.Table); t == "" {
			next.Table = nil
		} else {
			next.Table = &t
		}
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}

	var status model.Status
	if p.Status != nil {
		st, ok := model.ParseStatus(*p.Status)
		if !ok {
			problems = append(problems, "status must be one of pending, confirmed, cancelled, completed")
		} else {
			status = st
		}
	}

	if len(problems) > 0 {
		return nil, "", &ValidationError{Problems: problems}
	}
	return next, status, nil
}

func sameFields(a, b *model.Reservation) bool {
	tableEq := (a.Table == nil && b.Table == nil) ||
		(a.Table != nil && b.Table != nil && *a.Table == *b.Table)
	return tableEq &&
		a.CustomerName == b.CustomerName &&
		a.PhoneNumber == b.PhoneNumber &&
		a.Email == b.Email &&
		a.NumberOfPeople == b.NumberOfPeople &&
		a.Date.Equal(b.Date) &&
		a.Time == b.Time &&
		a.SpecialRequests == b.SpecialRequests &&
		a.Source == b.Source &&
		a.Status == b.Status &&
		a.Notes == b.Notes
}
