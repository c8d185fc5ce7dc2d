package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/utils"
)

// CreateRequest is the body of a booking request.  Source defaults to
// website when empty.
type CreateRequest struct {
	CustomerName    string  `json:"customerName"`
	PhoneNumber     string  `json:"phoneNumber"`
	Email           string  `json:"email"`
	NumberOfPeople  int     `json:"numberOfPeople"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	SpecialRequests string  `json:"specialRequests"`
	Source          string  `json:"source"`
	Table           *string `json:"table"`
	Notes           string  `json:"notes"`
}

// Admission decides whether a new reservation fits its service and stores
// it.  The ledger read, the insert and the new-reservation event all happen
// while the (date, service) lock is held, so concurrent requests for the same
// service cannot both take the last covers.  Notification jobs are queued
// after the lock is released.
type Admission struct {
	store     ReservationStore
	settings  SettingsStore
	ledger    *Ledger
	lifecycle *Lifecycle
	locker    AdmissionLocker
	clock     utils.Clock
	log       *slog.Logger
}

// NewAdmission shares the lifecycle's store, settings, locker and clock.
func NewAdmission(ledger *Ledger, lifecycle *Lifecycle) *Admission {
	return &Admission{
		store:     lifecycle.store,
		settings:  lifecycle.settings,
		ledger:    ledger,
		lifecycle: lifecycle,
		locker:    lifecycle.locker,
		clock:     lifecycle.clock,
		log:       lifecycle.log,
	}
}

type admissionInput struct {
	date   time.Time
	time   string
	source model.Source
}

// validate reports every field problem at once.  It runs before any slot or
// capacity work.
func (req CreateRequest) validate() (admissionInput, error) {
	var (
		in       admissionInput
		problems []string
	)
	if strings.TrimSpace(req.CustomerName) == "" {
		problems = append(problems, "customerName is required")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		problems = append(problems, "phoneNumber is required")
	}
	if e := strings.TrimSpace(req.Email); e != "" && !strings.Contains(e, "@") {
		problems = append(problems, "email is not a valid address")
	}
	if req.NumberOfPeople < 1 {
		problems = append(problems, "numberOfPeople must be at least 1")
	}
	if d, err := utils.ParseCalendarDate(req.Date); err != nil {
		problems = append(problems, err.Error())
	} else {
		in.date = d
	}
	in.time = strings.TrimSpace(req.Time)
	if in.time == "" {
		problems = append(problems, "time is required")
	} else if _, err := utils.MinutesSinceMidnight(in.time); err != nil {
		problems = append(problems, err.Error())
	}
	in.source = model.SourceWebsite
	if strings.TrimSpace(req.Source) != "" {
		src, ok := model.ParseSource(req.Source)
		if !ok {
			problems = append(problems, "source must be one of website, mobile, phone, walk-in, desktop")
		}
		in.source = src
	}
	if len(problems) > 0 {
		return admissionInput{}, &ValidationError{Problems: problems}
	}
	return in, nil
}

// Create admits and stores a reservation.  Rejections carry a message the
// customer can act on; a failed notification never fails the request.
func (a *Admission) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	in, err := req.validate()
	if err != nil {
		return nil, err
	}

	settings, err := a.settings.Get(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load settings", Err: err}
	}
	policy := NewPolicy(settings.Windows)

	svc, err := policy.Classify(in.date, in.time, a.clock.Now())
	if err != nil {
		return nil, err
	}

	r, err := a.admit(ctx, req, in, settings, policy, svc)
	if err != nil {
		return nil, err
	}
	a.lifecycle.submit(ctx, model.NotificationCreated, r)
	return r, nil
}

// admit runs the capacity check, the insert and the announcement under the
// (date, service) lock.
func (a *Admission) admit(ctx context.Context, req CreateRequest, in admissionInput, settings model.Settings, policy Policy, svc model.Service) (*model.Reservation, error) {
	unlock, err := a.locker.Lock(ctx, AdmissionKey(in.date, svc))
	if err != nil {
		return nil, err
	}
	defer unlock()

	capacity := settings.CapacityFor(in.source)
	occ, err := a.ledger.check(ctx, policy, in.date, svc, req.NumberOfPeople, capacity)
	if err != nil {
		var full *CapacityExceededError
		if errors.As(err, &full) {
			a.log.Info("reservation rejected: service full",
				slog.String("date", in.date.Format("2006-01-02")),
				slog.String("service", string(svc)),
				slog.Int("covers", occ.Covers),
				slog.Int("requested", req.NumberOfPeople))
		}
		return nil, err
	}

	now := a.clock.Now().UTC()
	r := &model.Reservation{
		ID:              uuid.NewString(),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		Email:           strings.TrimSpace(req.Email),
		NumberOfPeople:  req.NumberOfPeople,
		Date:            in.date,
		Time:            in.time,
		SpecialRequests: req.SpecialRequests,
		Source:          in.source,
		Status:          settings.InitialStatus(in.source),
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Table != nil {
		if t := strings.TrimSpace(*req.Table); t != "" {
			r.Table = &t
		}
	}

	if err := a.store.Insert(ctx, r); err != nil {
		return nil, &PersistenceError{Op: "insert reservation", Err: err}
	}
	a.log.Info("reservation created",
		slog.String("reservation_id", r.ID),
		slog.String("service", string(svc)),
		slog.Int("covers", occ.Covers+r.NumberOfPeople),
		slog.Int("capacity", capacity),
		slog.String("source", string(r.Source)))

	a.lifecycle.Created(ctx, r)
	return r, nil
}
