package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func busyPredicate(busy ...Interval) Occupied {
	return func(candidate Interval) (bool, error) {
		return OverlapsAny(candidate, busy), nil
	}
}

func TestSlots_OneHourServiceAroundExistingBooking(t *testing.T) {
	p := DefaultPolicy()
	slots, err := p.Slots(monday, time.Hour, busyPredicate(Interval{Start: at(10, 0), End: at(11, 0)}))
	require.NoError(t, err)
	require.Len(t, slots, 20)

	assert.Equal(t, at(8, 0), slots[0].Start)
	assert.Equal(t, at(17, 30), slots[len(slots)-1].Start)
	assert.Equal(t, at(18, 30), slots[len(slots)-1].End)

	var unavailable []time.Time
	for i, s := range slots {
		assert.Equal(t, at(8, 0).Add(time.Duration(i)*30*time.Minute), s.Start, "slots are ordered at 30 minute steps")
		assert.Equal(t, time.Hour, s.End.Sub(s.Start))
		if !s.Available {
			unavailable = append(unavailable, s.Start)
		}
	}
	assert.Equal(t, []time.Time{at(9, 30), at(10, 0), at(10, 30)}, unavailable)
}

func TestSlots_BackToBackIsAvailable(t *testing.T) {
	p := DefaultPolicy()
	slots, err := p.Slots(monday, 30*time.Minute, busyPredicate(Interval{Start: at(9, 0), End: at(9, 30)}))
	require.NoError(t, err)

	byStart := map[time.Time]bool{}
	for _, s := range slots {
		byStart[s.Start] = s.Available
	}
	assert.True(t, byStart[at(8, 30)], "slot ending at the busy start")
	assert.False(t, byStart[at(9, 0)])
	assert.True(t, byStart[at(9, 30)], "slot starting at the busy end")
}

func TestSlots_LongServiceDropsLateStarts(t *testing.T) {
	p := DefaultPolicy()
	slots, err := p.Slots(monday, 3*time.Hour, busyPredicate())
	require.NoError(t, err)
	// Last start whose end hour is <= 18 is 15:30 (ends 18:30).
	assert.Equal(t, at(15, 30), slots[len(slots)-1].Start)
	assert.Len(t, slots, 16)
}

func TestSlots_OvernightEndKeptByHour(t *testing.T) {
	p := DefaultPolicy()
	slots, err := p.Slots(monday, 16*time.Hour, busyPredicate())
	require.NoError(t, err)
	// 08:00 ends at 00:00 and 17:30 ends at 09:30 next day; every end hour is <= 18.
	assert.Len(t, slots, 20)
	assert.Equal(t, at(24+9, 30), slots[len(slots)-1].End)

	p.StrictClosingTime = true
	slots, err = p.Slots(monday, 16*time.Hour, busyPredicate())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlots_StrictClosingTime(t *testing.T) {
	p := DefaultPolicy()
	p.StrictClosingTime = true
	slots, err := p.Slots(monday, time.Hour, busyPredicate())
	require.NoError(t, err)
	assert.Len(t, slots, 19)
	assert.Equal(t, at(18, 0), slots[len(slots)-1].End)
}

func TestSlots_UsesPolicyLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	p := DefaultPolicy()
	p.Location = loc
	slots, err := p.Slots(monday, time.Hour, busyPredicate())
	require.NoError(t, err)
	assert.True(t, slots[0].Start.Equal(time.Date(2026, 3, 2, 8, 0, 0, 0, loc)))
}

func TestSlots_PropagatesPredicateError(t *testing.T) {
	boom := errors.New("db down")
	_, err := DefaultPolicy().Slots(monday, time.Hour, func(Interval) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestSlots_DegenerateInput(t *testing.T) {
	slots, err := DefaultPolicy().Slots(monday, 0, busyPredicate())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestInterval_Overlaps(t *testing.T) {
	existing := Interval{Start: at(10, 0), End: at(11, 0)}
	cases := []struct {
		name string
		in   Interval
		want bool
	}{
		{"starts inside", Interval{at(10, 30), at(11, 30)}, true},
		{"ends inside", Interval{at(9, 30), at(10, 30)}, true},
		{"contains existing", Interval{at(9, 0), at(12, 0)}, true},
		{"inside existing", Interval{at(10, 15), at(10, 45)}, true},
		{"identical", existing, true},
		{"ends at existing start", Interval{at(9, 0), at(10, 0)}, false},
		{"starts at existing end", Interval{at(11, 0), at(12, 0)}, false},
		{"disjoint", Interval{at(13, 0), at(14, 0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Overlaps(existing))
			assert.Equal(t, tc.want, existing.Overlaps(tc.in), "overlap is symmetric")
		})
	}
}
