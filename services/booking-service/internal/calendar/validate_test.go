package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	p := DefaultPolicy()
	now := monday.Add(-72 * time.Hour) // Friday before

	cases := []struct {
		name       string
		start, end time.Time
		now        time.Time
		want       error
	}{
		{"within hours", at(9, 0), at(10, 0), now, nil},
		{"opening hour", at(8, 0), at(9, 0), now, nil},
		{"ends at closing", at(17, 0), at(18, 0), now, nil},
		{"ends inside closing hour", at(17, 30), at(18, 30), now, nil},
		{"start equals end", at(9, 0), at(9, 0), now, ErrStartNotBeforeEnd},
		{"end before start", at(10, 0), at(9, 0), now, ErrStartNotBeforeEnd},
		{"in the past", at(9, 0), at(10, 0), at(9, 1), ErrInPast},
		{"starts exactly now", at(9, 0), at(10, 0), at(9, 0), nil},
		{"before opening", at(7, 30), at(8, 30), now, ErrOutsideBusinessHours},
		{"after closing hour", at(18, 30), at(19, 30), now, ErrOutsideBusinessHours},
		{"ends next morning", at(17, 0), at(24+9, 0), now, nil},
		{"ends next evening", at(17, 0), at(24+19, 0), now, ErrOutsideBusinessHours},
		{"saturday", at(5*24+9, 0), at(5*24+10, 0), now, ErrWeekend},
		{"sunday", at(6*24+9, 0), at(6*24+10, 0), now, ErrWeekend},
		{"past wins over hours", at(7, 0), at(8, 0), at(7, 30), ErrInPast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Validate(tc.start, tc.end, tc.now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidate_WeekdayBusinessHoursAlwaysPass(t *testing.T) {
	p := DefaultPolicy()
	now := monday.Add(-time.Hour)
	for day := 0; day < 5; day++ {
		for h := p.BusinessHoursStart; h < p.BusinessHoursEnd; h++ {
			for _, d := range []time.Duration{30 * time.Minute, time.Hour} {
				start := at(day*24+h, 0)
				if err := p.Validate(start, start.Add(d), now); err != nil {
					t.Fatalf("expected %s +%s to pass, got %v", start, d, err)
				}
			}
		}
	}
}

func TestValidate_StrictClosingTime(t *testing.T) {
	p := DefaultPolicy()
	p.StrictClosingTime = true
	now := monday.Add(-time.Hour)
	assert.NoError(t, p.Validate(at(17, 0), at(18, 0), now))
	assert.ErrorIs(t, p.Validate(at(17, 0), at(18, 0).Add(time.Second), now), ErrOutsideBusinessHours)
	assert.ErrorIs(t, p.Validate(at(17, 0), at(24+9, 0), now), ErrOutsideBusinessHours)
}

func TestPolicy_CheckAndCancelWindow(t *testing.T) {
	p := DefaultPolicy()
	assert.NoError(t, p.Check())

	bad := p
	bad.BusinessHoursStart, bad.BusinessHoursEnd = 18, 8
	assert.Error(t, bad.Check())

	bad = p
	bad.SlotStep = 0
	assert.Error(t, bad.Check())

	start := at(12, 0)
	assert.True(t, p.CanCancel(start, start.Add(-24*time.Hour)))
	assert.False(t, p.CanCancel(start, start.Add(-23*time.Hour)))
}
