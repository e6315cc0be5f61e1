package calendar

import (
	"errors"
	"time"
)

var (
	ErrStartNotBeforeEnd    = errors.New("start must precede end")
	ErrInPast               = errors.New("cannot book in the past")
	ErrOutsideBusinessHours = errors.New("outside business hours")
	ErrWeekend              = errors.New("no weekend bookings")
)

// Validate checks a proposed [start, end) against the policy at instant now.
// Rules run in order and the first failure is returned.
//
// Business hours compare whole hours of day: an interval ending at 18:30 with
// a closing hour of 18 passes unless StrictClosingTime is set. Only the hour
// of the end is read, so an end on a later day passes when its hour does.
func (p Policy) Validate(start, end, now time.Time) error {
	if !start.Before(end) {
		return ErrStartNotBeforeEnd
	}
	if start.Before(now) {
		return ErrInPast
	}
	if !p.withinBusinessHours(start, end) {
		return ErrOutsideBusinessHours
	}
	switch start.In(p.location()).Weekday() {
	case time.Saturday, time.Sunday:
		return ErrWeekend
	}
	return nil
}

func (p Policy) withinBusinessHours(start, end time.Time) bool {
	loc := p.location()
	s, e := start.In(loc), end.In(loc)
	if s.Hour() < p.BusinessHoursStart || e.Hour() > p.BusinessHoursEnd {
		return false
	}
	if p.StrictClosingTime && e.After(p.dayAt(s, p.BusinessHoursEnd)) {
		return false
	}
	return true
}
