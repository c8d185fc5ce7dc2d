package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/table-booking/internal/logging"
	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/repository"
	"github.com/iliyamo/table-booking/internal/utils"
)

type recordedEvent struct {
	name   string
	id     string
	status model.Status
}

// recordingPublisher keeps every event in publish order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event string, payload any) {
	r, _ := payload.(*model.Reservation)
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := recordedEvent{name: event}
	if r != nil {
		ev.id, ev.status = r.ID, r.Status
	}
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.name
	}
	return out
}

// fakeOutbox records jobs and optionally fails every Submit.  A non-nil gate
// holds each Submit until it is closed.
type fakeOutbox struct {
	mu   sync.Mutex
	jobs []model.NotificationJob
	err  error
	gate chan struct{}
}

func (o *fakeOutbox) Submit(ctx context.Context, job model.NotificationJob) error {
	if o.gate != nil {
		select {
		case <-o.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.jobs = append(o.jobs, job)
	return nil
}

func (o *fakeOutbox) submitted() []model.NotificationJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.NotificationJob(nil), o.jobs...)
}

// spyStore wraps the memory store, counts Find calls and can fail writes.
type spyStore struct {
	*repository.MemoryReservationStore
	finds     atomic.Int64
	insertErr error
}

func (s *spyStore) Find(ctx context.Context, f repository.ReservationFilter) ([]*model.Reservation, error) {
	s.finds.Add(1)
	return s.MemoryReservationStore.Find(ctx, f)
}

func (s *spyStore) Insert(ctx context.Context, r *model.Reservation) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.MemoryReservationStore.Insert(ctx, r)
}

// fakeSender records deliveries and fails for listed addresses.
type fakeSender struct {
	mu    sync.Mutex
	sent  []Recipient
	msgs  []Message
	fails map[string]error
}

func (s *fakeSender) Send(_ context.Context, to Recipient, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fails[to.Address]; ok {
		return err
	}
	s.sent = append(s.sent, to)
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeSender) addresses() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.sent))
	for _, r := range s.sent {
		out[r.Address] = true
	}
	return out
}

var errBoom = errors.New("boom")

// monday10 is Monday 2030-01-07 10:00 in the restaurant's zone.
var monday10 = time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)

const (
	today    = "2030-01-07" // Monday
	tomorrow = "2030-01-08" // Tuesday
	saturday = "2030-01-12"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := utils.ParseCalendarDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

type fixture struct {
	store     *spyStore
	settings  *repository.MemorySettingsStore
	events    *recordingPublisher
	outbox    *fakeOutbox
	lifecycle *Lifecycle
	ledger    *Ledger
	admission *Admission
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store:    &spyStore{MemoryReservationStore: repository.NewMemoryReservationStore()},
		settings: repository.NewMemorySettingsStore(model.DefaultSettings()),
		events:   &recordingPublisher{},
		outbox:   &fakeOutbox{},
	}
	f.lifecycle = NewLifecycle(LifecycleDeps{
		Store:    f.store,
		Settings: f.settings,
		Locker:   NewLocalLocker(),
		Events:   f.events,
		Outbox:   f.outbox,
		Clock:    utils.FixedClock{T: now},
		Logger:   logging.Discard(),
	})
	f.ledger = NewLedger(f.store, f.settings)
	f.admission = NewAdmission(f.ledger, f.lifecycle)
	return f
}

func request(date, hhmm string, people int) CreateRequest {
	return CreateRequest{
		CustomerName:   "Ada Lovelace",
		PhoneNumber:    "+262 692 00 00 00",
		NumberOfPeople: people,
		Date:           date,
		Time:           hhmm,
	}
}

func (f *fixture) create(t *testing.T, req CreateRequest) *model.Reservation {
	t.Helper()
	r, err := f.admission.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create %+v: %v", req, err)
	}
	return r
}
