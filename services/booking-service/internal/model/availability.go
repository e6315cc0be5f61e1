package model

import "time"

// Availability is one provider's recurring window for a day of week.
// DayOfWeek counts from Monday = 0 to Sunday = 6; minutes are since midnight.
type Availability struct {
	ProviderID  string
	DayOfWeek   int
	StartMinute int
	EndMinute   int
	IsAvailable bool
	UpdatedAt   time.Time
}

// DayOfWeek maps a time.Weekday (Sunday = 0) to the Monday-first index.
func DayOfWeek(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Window returns the concrete [open, close) instants on the day of t, in t's location.
func (a Availability) Window(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.Add(time.Duration(a.StartMinute) * time.Minute), day.Add(time.Duration(a.EndMinute) * time.Minute)
}
