// Package calendar holds the pure scheduling rules: the booking policy,
// time-slot validation, half-open overlap and slot enumeration. Nothing here
// touches storage or reads the wall clock; "now" is always passed in.
package calendar

import (
	"fmt"
	"time"
)

// Policy is the business configuration the scheduler runs under.
type Policy struct {
	// BusinessHoursStart and BusinessHoursEnd are hours of day in Location.
	BusinessHoursStart int
	BusinessHoursEnd   int
	// CancellationWindow is how long before the start a customer may still cancel.
	CancellationWindow time.Duration
	SlotStep           time.Duration
	Location           *time.Location

	// StrictClosingTime rejects intervals ending after BusinessHoursEnd:00
	// instead of comparing whole hours only.
	StrictClosingTime bool
	// StrictTransitions enforces the appointment state machine on updates.
	StrictTransitions bool
	// RespectProviderSchedule makes slot generation honour the provider's
	// weekly availability when a provider is given.
	RespectProviderSchedule bool
}

func DefaultPolicy() Policy {
	return Policy{
		BusinessHoursStart: 8,
		BusinessHoursEnd:   18,
		CancellationWindow: 24 * time.Hour,
		SlotStep:           30 * time.Minute,
		Location:           time.UTC,
	}
}

// Check reports configuration errors; callers fail fast on startup.
func (p Policy) Check() error {
	if p.BusinessHoursStart < 0 || p.BusinessHoursEnd > 24 || p.BusinessHoursStart >= p.BusinessHoursEnd {
		return fmt.Errorf("business hours must satisfy 0 <= start < end <= 24 (got %d..%d)", p.BusinessHoursStart, p.BusinessHoursEnd)
	}
	if p.CancellationWindow < 0 {
		return fmt.Errorf("cancellation window must not be negative (got %s)", p.CancellationWindow)
	}
	if p.SlotStep <= 0 {
		return fmt.Errorf("slot step must be positive (got %s)", p.SlotStep)
	}
	return nil
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// dayAt returns hour:00 on the calendar day of t, in the policy location.
func (p Policy) dayAt(t time.Time, hour int) time.Time {
	t = t.In(p.location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Add(time.Duration(hour) * time.Hour)
}

// CanCancel reports whether a customer may still cancel an appointment
// starting at start.
func (p Policy) CanCancel(start, now time.Time) bool {
	return start.Sub(now) >= p.CancellationWindow
}
