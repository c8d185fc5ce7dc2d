package service

import (
	"fmt"
	"time"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/utils"
)

// Policy classifies an arrival slot into a service using the opening
// windows from the restaurant settings.
type Policy struct {
	windows map[model.Service]model.Window
}

// NewPolicy builds a policy over the given windows.  Missing services fall
// back to the built-in defaults.
func NewPolicy(windows map[model.Service]model.Window) Policy {
	defaults := model.DefaultSettings().Windows
	w := make(map[model.Service]model.Window, len(model.Services))
	for _, svc := range model.Services {
		if win, ok := windows[svc]; ok {
			w[svc] = win
			continue
		}
		w[svc] = defaults[svc]
	}
	return Policy{windows: w}
}

// band is the part of the day a service occupies for same-day cut-offs.  It
// starts on the hour of the first arrival and ends at the hard service end.
func (p Policy) band(svc model.Service) (start, end int) {
	w := p.windows[svc]
	return (w.Start / 60) * 60, w.ServiceEnd
}

func (p Policy) inBand(svc model.Service, minute int) bool {
	start, end := p.band(svc)
	return minute >= start && minute < end
}

// Classify returns the service for (date, hhmm) or a *SlotRejectedError.
// now must already be expressed in the restaurant's time zone.  Same-day
// checks run in order: lunch ended, dinner ended, time passed, and only
// then the window check.
func (p Policy) Classify(date time.Time, hhmm string, now time.Time) (model.Service, error) {
	minute, err := utils.MinutesSinceMidnight(hhmm)
	if err != nil {
		return "", &ValidationError{Problems: []string{err.Error()}}
	}

	if utils.IsSameCalendarDay(date, now) {
		nowMinute := now.Hour()*60 + now.Minute()
		lunch := p.windows[model.ServiceLunch]
		dinner := p.windows[model.ServiceDinner]

		if nowMinute > lunch.ServiceEnd && p.inBand(model.ServiceLunch, minute) {
			return "", &SlotRejectedError{Reason: fmt.Sprintf(
				"Lunch service has ended for today (service ends at %s). Please choose a dinner slot or another day.",
				utils.FormatMinutes(lunch.ServiceEnd))}
		}
		if nowMinute > dinner.ServiceEnd && p.inBand(model.ServiceDinner, minute) {
			return "", &SlotRejectedError{Reason: fmt.Sprintf(
				"Dinner service has ended for today (service ends at %s). Please choose another day.",
				utils.FormatMinutes(dinner.ServiceEnd))}
		}
		if minute < nowMinute {
			return "", &SlotRejectedError{Reason: fmt.Sprintf(
				"The requested time %s has already passed today. Please choose a later time.",
				utils.FormatMinutes(minute))}
		}
	}

	return p.classifyMinute(date, minute)
}

// ClassifyStatic performs the window check only.  It is used when counting
// covers and when validating edits, where "now" is irrelevant.
func (p Policy) ClassifyStatic(date time.Time, hhmm string) (model.Service, error) {
	minute, err := utils.MinutesSinceMidnight(hhmm)
	if err != nil {
		return "", &ValidationError{Problems: []string{err.Error()}}
	}
	return p.classifyMinute(date, minute)
}

func (p Policy) classifyMinute(date time.Time, minute int) (model.Service, error) {
	weekend := utils.IsWeekend(date)
	for _, svc := range model.Services {
		if p.windows[svc].Contains(minute, weekend) {
			return svc, nil
		}
	}
	return "", &SlotRejectedError{Reason: p.outsideMessage(weekend)}
}

func (p Policy) outsideMessage(weekend bool) string {
	lunch := p.windows[model.ServiceLunch]
	dinner := p.windows[model.ServiceDinner]
	day := "weekdays"
	if weekend {
		day = "weekends"
	}
	return fmt.Sprintf(
		"Reservations on %s are only possible between %s-%s (lunch) or %s-%s (dinner).",
		day,
		utils.FormatMinutes(lunch.Start), utils.FormatMinutes(lunch.End(weekend)),
		utils.FormatMinutes(dinner.Start), utils.FormatMinutes(dinner.End(weekend)),
	)
}
