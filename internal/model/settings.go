package model

import (
	"errors"
	"fmt"
	"time"
)

// Window is an inclusive range of arrival times in minutes since midnight.
// WeekendEnd extends the last arrival on Saturdays and Sundays.
type Window struct {
	Start      int `json:"start" bson:"start"`
	WeekdayEnd int `json:"weekdayEnd" bson:"weekday_end"`
	WeekendEnd int `json:"weekendEnd" bson:"weekend_end"`
	// ServiceEnd is the hard boundary after which a same-day booking for
	// this service is refused, independent of the weekend extension.
	ServiceEnd int `json:"serviceEnd" bson:"service_end"`
}

// End returns the last accepted arrival for the given day type.
func (w Window) End(weekend bool) int {
	if weekend {
		return w.WeekendEnd
	}
	return w.WeekdayEnd
}

func (w Window) lastArrival() int {
	return max(w.WeekdayEnd, w.WeekendEnd)
}

// Contains reports whether minute lies inside the window for the day type.
func (w Window) Contains(minute int, weekend bool) bool {
	return minute >= w.Start && minute <= w.End(weekend)
}

// Settings is the mutable restaurant configuration read on every admission.
// Version increases by one on each accepted write.
type Settings struct {
	Version int `json:"version"`
	// Windows holds the opening windows keyed by service.
	Windows map[Service]Window `json:"windows"`
	// Capacity is the per-service cover cap for bookings from each source.
	Capacity map[Source]int `json:"capacity"`
	// DefaultStatus is the status given to new bookings from each source.
	DefaultStatus map[Source]Status `json:"defaultStatus"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// DefaultCapacity is the cover cap applied to a source with no explicit value.
const DefaultCapacity = 50

// DefaultSettings returns the opening hours and caps the restaurant runs with
// out of the box.
func DefaultSettings() Settings {
	capacity := make(map[Source]int, len(Sources))
	for _, s := range Sources {
		capacity[s] = DefaultCapacity
	}
	return Settings{
		Version: 1,
		Windows: map[Service]Window{
			ServiceLunch:  {Start: 720, WeekdayEnd: 795, WeekendEnd: 825, ServiceEnd: 900},
			ServiceDinner: {Start: 1110, WeekdayEnd: 1260, WeekendEnd: 1290, ServiceEnd: 1380},
		},
		Capacity: capacity,
		DefaultStatus: map[Source]Status{
			SourceWebsite: StatusPending,
			SourceMobile:  StatusPending,
			SourcePhone:   StatusConfirmed,
			SourceWalkIn:  StatusConfirmed,
			SourceDesktop: StatusConfirmed,
		},
	}
}

// CapacityFor returns the cap for bookings from source.
func (s Settings) CapacityFor(source Source) int {
	if c, ok := s.Capacity[source]; ok && c > 0 {
		return c
	}
	return DefaultCapacity
}

// InitialStatus returns the status a new booking from source starts in.
func (s Settings) InitialStatus(source Source) Status {
	if st, ok := s.DefaultStatus[source]; ok {
		return st
	}
	return StatusPending
}

// Clone deep-copies the maps so callers can mutate the result freely.
func (s Settings) Clone() Settings {
	out := s
	out.Windows = make(map[Service]Window, len(s.Windows))
	for k, v := range s.Windows {
		out.Windows[k] = v
	}
	out.Capacity = make(map[Source]int, len(s.Capacity))
	for k, v := range s.Capacity {
		out.Capacity[k] = v
	}
	out.DefaultStatus = make(map[Source]Status, len(s.DefaultStatus))
	for k, v := range s.DefaultStatus {
		out.DefaultStatus[k] = v
	}
	return out
}

// Validate checks the structural rules a settings document must satisfy.
func (s Settings) Validate() error {
	var errs []error
	for _, svc := range Services {
		w, ok := s.Windows[svc]
		if !ok {
			errs = append(errs, fmt.Errorf("missing %s window", svc))
			continue
		}
		if w.Start < 0 || w.ServiceEnd < 0 || w.WeekdayEnd > 1439 || w.WeekendEnd > 1439 || w.ServiceEnd > 1439 {
			errs = append(errs, fmt.Errorf("%s window out of range", svc))
		}
		if w.WeekdayEnd < w.Start || w.WeekendEnd < w.Start {
			errs = append(errs, fmt.Errorf("%s window ends before it starts", svc))
		}
		if w.ServiceEnd < w.lastArrival() {
			errs = append(errs, fmt.Errorf("%s service ends before its last arrival", svc))
		}
	}
	if l, d := s.Windows[ServiceLunch], s.Windows[ServiceDinner]; l.lastArrival() >= d.Start {
		errs = append(errs, errors.New("lunch and dinner windows overlap"))
	}
	for src, c := range s.Capacity {
		if _, ok := ParseSource(string(src)); !ok {
			errs = append(errs, fmt.Errorf("unknown source %q in capacity", src))
		}
		if c < 1 {
			errs = append(errs, fmt.Errorf("capacity for %s must be at least 1", src))
		}
	}
	for src, st := range s.DefaultStatus {
		if _, ok := ParseSource(string(src)); !ok {
			errs = append(errs, fmt.Errorf("unknown source %q in defaultStatus", src))
		}
		if st != StatusPending && st != StatusConfirmed {
			errs = append(errs, fmt.Errorf("default status for %s must be pending or confirmed", src))
		}
	}
	return errors.Join(errs...)
}
