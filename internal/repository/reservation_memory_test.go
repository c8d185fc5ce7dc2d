package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/table-booking/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seed(t *testing.T, s *MemoryReservationStore, rs ...*model.Reservation) {
	t.Helper()
	for _, r := range rs {
		if err := s.Insert(context.Background(), r); err != nil {
			t.Fatalf("insert %s: %v", r.ID, err)
		}
	}
}

func TestMemoryStoreFindFiltersAndSorts(t *testing.T) {
	s := NewMemoryReservationStore()
	base := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	seed(t, s,
		&model.Reservation{ID: "c", Date: day("2030-01-07"), Time: "19:00", Status: model.StatusPending, CreatedAt: base},
		&model.Reservation{ID: "a", Date: day("2030-01-07"), Time: "12:30", Status: model.StatusConfirmed, CreatedAt: base},
		&model.Reservation{ID: "b", Date: day("2030-01-07"), Time: "12:30", Status: model.StatusCancelled, CreatedAt: base.Add(time.Minute)},
		&model.Reservation{ID: "d", Date: day("2030-01-08"), Time: "12:00", Status: model.StatusPending, CreatedAt: base},
	)
	ctx := context.Background()
	d := day("2030-01-07")

	cases := []struct {
		name   string
		filter ReservationFilter
		want   []string
	}{
		{"all", ReservationFilter{}, []string{"a", "b", "c", "d"}},
		{"day", ReservationFilter{Date: &d}, []string{"a", "b", "c"}},
		{"day without cancelled", ReservationFilter{Date: &d, ExcludeStatus: model.StatusCancelled}, []string{"a", "c"}},
		{"status", ReservationFilter{Status: model.StatusPending}, []string{"c", "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Find(ctx, tc.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d records want %d", len(got), len(tc.want))
			}
			for i, r := range got {
				if r.ID != tc.want[i] {
					t.Fatalf("position %d: got %s want %s", i, r.ID, tc.want[i])
				}
			}
		})
	}
}

func TestMemoryStoreUpdateAndNotFound(t *testing.T) {
	s := NewMemoryReservationStore()
	ctx := context.Background()
	seed(t, s, &model.Reservation{ID: "x", Status: model.StatusPending, NumberOfPeople: 2})

	if _, err := s.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateByID(ctx, "missing", &model.Reservation{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := s.FindByID(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	got.Status = model.StatusConfirmed
	// Mutating a returned record must not change the store.
	again, _ := s.FindByID(ctx, "x")
	if again.Status != model.StatusPending {
		t.Fatal("store returned a shared pointer")
	}

	updated, err := s.UpdateByID(ctx, "x", got)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != model.StatusConfirmed || updated.NumberOfPeople != 2 {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestMemoryStoreRejectsDuplicateID(t *testing.T) {
	s := NewMemoryReservationStore()
	seed(t, s, &model.Reservation{ID: "dup"})
	if err := s.Insert(context.Background(), &model.Reservation{ID: "dup"}); err == nil {
		t.Fatal("duplicate insert accepted")
	}
}
