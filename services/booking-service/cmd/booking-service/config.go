package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/autobook/libs/config"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/calendar"
)

func policyFromEnv() (calendar.Policy, error) {
	p := calendar.DefaultPolicy()
	var err error
	if p.BusinessHoursStart, err = config.Int("BUSINESS_HOURS_START", p.BusinessHoursStart); err != nil {
		return p, err
	}
	if p.BusinessHoursEnd, err = config.Int("BUSINESS_HOURS_END", p.BusinessHoursEnd); err != nil {
		return p, err
	}
	if p.CancellationWindow, err = config.Duration("CANCELLATION_WINDOW_HOURS", p.CancellationWindow, time.Hour); err != nil {
		return p, err
	}
	if p.SlotStep, err = config.Duration("SLOT_STEP_MINUTES", p.SlotStep, time.Minute); err != nil {
		return p, err
	}
	tz := config.String("BOOKING_TIMEZONE", "UTC")
	if p.Location, err = time.LoadLocation(tz); err != nil {
		return p, fmt.Errorf("BOOKING_TIMEZONE: %w", err)
	}
	p.StrictTransitions = config.Bool("STRICT_TRANSITIONS", false)
	p.StrictClosingTime = config.Bool("STRICT_CLOSING_TIME", false)
	p.RespectProviderSchedule = config.Bool("RESPECT_PROVIDER_SCHEDULE", false)
	return p, p.Check()
}

// reminderOffsets reads REMINDER_OFFSETS_MINUTES; invalid entries are logged
// and skipped.
func reminderOffsets(logger *slog.Logger) []time.Duration {
	var offsets []time.Duration
	for _, part := range config.List("REMINDER_OFFSETS_MINUTES", "1440") {
		mins, err := strconv.Atoi(part)
		if err != nil || mins <= 0 {
			logger.Warn("invalid reminder offset", "value", part)
			continue
		}
		offsets = append(offsets, time.Duration(mins)*time.Minute)
	}
	return offsets
}
