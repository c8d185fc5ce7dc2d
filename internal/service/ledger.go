package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/repository"
	"github.com/iliyamo/table-booking/internal/utils"
)

// Ledger computes the covers booked per service.  Totals are recomputed from
// the store on every call; nothing is cached so edits made outside the API
// are always honoured.
type Ledger struct {
	store    ReservationStore
	settings SettingsStore
}

// NewLedger returns a ledger over store.  Windows are read from settings.
func NewLedger(store ReservationStore, settings SettingsStore) *Ledger {
	return &Ledger{store: store, settings: settings}
}

// Occupancy is the load of one service on one day.
type Occupancy struct {
	Service      model.Service `json:"service"`
	Covers       int           `json:"covers"`
	Capacity     int           `json:"capacity"`
	Remaining    int           `json:"remaining"`
	Reservations int           `json:"reservations"`
}

func (l *Ledger) policy(ctx context.Context) (Policy, error) {
	s, err := l.settings.Get(ctx)
	if err != nil {
		return Policy{}, &PersistenceError{Op: "load settings", Err: err}
	}
	return NewPolicy(s.Windows), nil
}

// CoversFor sums the party sizes of non-cancelled reservations on date whose
// time falls in svc.
func (l *Ledger) CoversFor(ctx context.Context, date time.Time, svc model.Service) (int, error) {
	p, err := l.policy(ctx)
	if err != nil {
		return 0, err
	}
	load, err := l.load(ctx, p, date)
	if err != nil {
		return 0, err
	}
	return load[svc].covers, nil
}

// Check rejects requested covers that would push svc above capacity.
// Reaching capacity exactly is allowed.
func (l *Ledger) Check(ctx context.Context, date time.Time, svc model.Service, requested, capacity int) (Occupancy, error) {
	p, err := l.policy(ctx)
	if err != nil {
		return Occupancy{}, err
	}
	return l.check(ctx, p, date, svc, requested, capacity)
}

func (l *Ledger) check(ctx context.Context, p Policy, date time.Time, svc model.Service, requested, capacity int) (Occupancy, error) {
	load, err := l.load(ctx, p, date)
	if err != nil {
		return Occupancy{}, err
	}
	occ := load[svc].occupancy(svc, capacity)
	if occ.Covers+requested > capacity {
		return occ, &CapacityExceededError{
			Service:   svc,
			Current:   occ.Covers,
			Max:       capacity,
			Requested: requested,
		}
	}
	return occ, nil
}

// Occupancy reports every service on date against the cap that applies to
// bookings from source.
func (l *Ledger) Occupancy(ctx context.Context, date time.Time, source model.Source) ([]Occupancy, error) {
	s, err := l.settings.Get(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load settings", Err: err}
	}
	load, err := l.load(ctx, NewPolicy(s.Windows), date)
	if err != nil {
		return nil, err
	}
	capacity := s.CapacityFor(source)
	out := make([]Occupancy, 0, len(model.Services))
	for _, svc := range model.Services {
		out = append(out, load[svc].occupancy(svc, capacity))
	}
	return out, nil
}

type serviceLoad struct {
	covers       int
	reservations int
}

func (s serviceLoad) occupancy(svc model.Service, capacity int) Occupancy {
	remaining := capacity - s.covers
	if remaining < 0 {
		remaining = 0
	}
	return Occupancy{
		Service:      svc,
		Covers:       s.covers,
		Capacity:     capacity,
		Remaining:    remaining,
		Reservations: s.reservations,
	}
}

func (l *Ledger) load(ctx context.Context, p Policy, date time.Time) (map[model.Service]serviceLoad, error) {
	day := utils.CalendarDay(date)
	records, err := l.store.Find(ctx, repository.ReservationFilter{
		Date:          &day,
		ExcludeStatus: model.StatusCancelled,
	})
	if err != nil {
		return nil, &PersistenceError{Op: "count covers", Err: err}
	}
	out := make(map[model.Service]serviceLoad, len(model.Services))
	for _, r := range records {
		if r.Status == model.StatusCancelled {
			continue
		}
		svc, err := p.ClassifyStatic(day, r.Time)
		if err != nil {
			// The windows may have moved since this booking was taken.
			continue
		}
		cur := out[svc]
		cur.covers += r.NumberOfPeople
		cur.reservations++
		out[svc] = cur
	}
	return out, nil
}
