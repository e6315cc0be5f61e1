package calendar

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps is the half-open test: [a,b) and [c,d) overlap iff a < d && c < b.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func OverlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// Occupied decides whether a candidate slot is taken.
type Occupied func(Interval) (bool, error)

// Slots enumerates candidate windows of length duration on date's calendar
// day: from BusinessHoursStart:00, every SlotStep, while the step start is
// before BusinessHoursEnd:00. A slot is kept when its end hour is within
// business hours (same whole-hour rule as Validate) and each kept slot is
// tagged with !occupied. Weekends are not excluded.
func (p Policy) Slots(date time.Time, duration time.Duration, occupied Occupied) ([]Slot, error) {
	if duration <= 0 || p.SlotStep <= 0 {
		return nil, nil
	}
	open := p.dayAt(date, p.BusinessHoursStart)
	closing := p.dayAt(date, p.BusinessHoursEnd)

	var slots []Slot
	for t := open; t.Before(closing); t = t.Add(p.SlotStep) {
		candidate := Interval{Start: t, End: t.Add(duration)}
		if !p.withinBusinessHours(candidate.Start, candidate.End) {
			continue
		}
		taken, err := occupied(candidate)
		if err != nil {
			return nil, err
		}
		slots = append(slots, Slot{Start: candidate.Start, End: candidate.End, Available: !taken})
	}
	return slots, nil
}
