package repository

import (
	"sort"
	"time"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/utils"
)

// ReservationFilter narrows Find.  Zero values mean "no constraint".
type ReservationFilter struct {
	// Date restricts results to one calendar day.
	Date *time.Time
	// Status restricts results to one lifecycle state.
	Status model.Status
	// ExcludeStatus drops records in that state (used by the capacity ledger).
	ExcludeStatus model.Status
}

func (f ReservationFilter) matches(r *model.Reservation) bool {
	if f.Date != nil && !utils.IsSameCalendarDay(r.Date.UTC(), f.Date.UTC()) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && r.Status == f.ExcludeStatus {
		return false
	}
	return true
}

// dayRange returns [start, end) of the filtered day.
func (f ReservationFilter) dayRange() (time.Time, time.Time) {
	start := utils.CalendarDay(f.Date.UTC())
	return start, start.Add(24 * time.Hour)
}

// SortReservations orders by date then time ascending, oldest creation first
// for equal slots.
func SortReservations(items []*model.Reservation) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
