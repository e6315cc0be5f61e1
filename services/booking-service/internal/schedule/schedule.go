// Package schedule manages providers' recurring weekly availability.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

const minutesPerDay = 24 * 60

type Repository interface {
	UpsertAvailability(ctx context.Context, a model.Availability) (model.Availability, error)
	ListAvailability(ctx context.Context, providerID string) ([]model.Availability, error)
	DeleteAvailability(ctx context.Context, providerID string, dayOfWeek int) (bool, error)
}

type SetRequest struct {
	DayOfWeek   int // Monday = 0
	StartMinute int
	EndMinute   int
	IsAvailable bool
}

type Service struct {
	repo   Repository
	users  booking.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, users booking.UserRepository, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, users: users, logger: logger, now: now}
}

// Set creates or replaces the provider's window for one weekday.
func (s *Service) Set(ctx context.Context, actor booking.Actor, providerID string, req SetRequest) (model.Availability, error) {
	if !canEdit(actor, providerID) {
		return model.Availability{}, booking.ErrUnauthorized
	}
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return model.Availability{}, &booking.Error{Kind: booking.KindValidation, Msg: "day_of_week must be between 0 (Monday) and 6 (Sunday)"}
	}
	if req.StartMinute < 0 || req.EndMinute > minutesPerDay || req.StartMinute >= req.EndMinute {
		return model.Availability{}, &booking.Error{Kind: booking.KindValidation, Msg: "start_time must be before end_time"}
	}
	if err := s.requireProvider(ctx, providerID); err != nil {
		return model.Availability{}, err
	}

	saved, err := s.repo.UpsertAvailability(ctx, model.Availability{
		ProviderID:  providerID,
		DayOfWeek:   req.DayOfWeek,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		IsAvailable: req.IsAvailable,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return model.Availability{}, &booking.Error{Kind: booking.KindPersistence, Msg: "save availability", Err: err}
	}
	s.logger.Info("availability set", "provider_id", providerID, "day_of_week", req.DayOfWeek, "actor_id", actor.ID)
	return saved, nil
}

// List returns the provider's weekly schedule ordered by day.
func (s *Service) List(ctx context.Context, providerID string) ([]model.Availability, error) {
	if err := s.requireProvider(ctx, providerID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListAvailability(ctx, providerID)
	if err != nil {
		return nil, &booking.Error{Kind: booking.KindPersistence, Msg: "list availability", Err: err}
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, actor booking.Actor, providerID string, dayOfWeek int) error {
	if !canEdit(actor, providerID) {
		return booking.ErrUnauthorized
	}
	deleted, err := s.repo.DeleteAvailability(ctx, providerID, dayOfWeek)
	if err != nil {
		return &booking.Error{Kind: booking.KindPersistence, Msg: "delete availability", Err: err}
	}
	if !deleted {
		return &booking.Error{Kind: booking.KindNotFound, Msg: "availability not found"}
	}
	s.logger.Info("availability deleted", "provider_id", providerID, "day_of_week", dayOfWeek, "actor_id", actor.ID)
	return nil
}

func (s *Service) requireProvider(ctx context.Context, providerID string) error {
	u, found, err := s.users.GetUser(ctx, providerID)
	if err != nil {
		return &booking.Error{Kind: booking.KindPersistence, Msg: "load provider", Err: err}
	}
	if !found || u.Role != model.RoleProvider {
		return &booking.Error{Kind: booking.KindNotFound, Msg: "provider not found"}
	}
	return nil
}

func canEdit(actor booking.Actor, providerID string) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleProvider:
		return actor.ID == providerID
	}
	return false
}

// ParseClock reads "HH:MM" into minutes since midnight. "24:00" is accepted
// as the end of day.
func ParseClock(raw string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil || len(raw) != 5 {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", raw)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", raw)
	}
	return h*60 + m, nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
