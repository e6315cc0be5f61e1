package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/autobook/libs/db"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) UpsertAvailability(ctx context.Context, a model.Availability) (model.Availability, error) {
	rows, err := r.pool.Query(ctx, `
		INSERT INTO provider_availability (provider_id, day_of_week, start_minute, end_minute, is_available, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_id, day_of_week) DO UPDATE
		SET start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			is_available = EXCLUDED.is_available,
			updated_at = EXCLUDED.updated_at
		RETURNING provider_id, day_of_week, start_minute, end_minute, is_available, updated_at
	`, a.ProviderID, a.DayOfWeek, a.StartMinute, a.EndMinute, a.IsAvailable, a.UpdatedAt)
	if err != nil {
		return model.Availability{}, err
	}
	return pgx.CollectExactlyOneRow(rows, scanAvailability)
}

func (r *AvailabilityRepository) ListAvailability(ctx context.Context, providerID string) ([]model.Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT provider_id, day_of_week, start_minute, end_minute, is_available, updated_at
		FROM provider_availability
		WHERE provider_id = $1
		ORDER BY day_of_week
	`, providerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAvailability)
}

func (r *AvailabilityRepository) GetAvailability(ctx context.Context, providerID string, day int) (model.Availability, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT provider_id, day_of_week, start_minute, end_minute, is_available, updated_at
		FROM provider_availability
		WHERE provider_id = $1 AND day_of_week = $2
	`, providerID, day)
	if err != nil {
		return model.Availability{}, false, err
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAvailability)
	return found(a, err)
}

func (r *AvailabilityRepository) DeleteAvailability(ctx context.Context, providerID string, day int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM provider_availability WHERE provider_id = $1 AND day_of_week = $2
	`, providerID, day)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanAvailability(row pgx.CollectableRow) (model.Availability, error) {
	var a model.Availability
	var day int16
	err := row.Scan(&a.ProviderID, &day, &a.StartMinute, &a.EndMinute, &a.IsAvailable, &a.UpdatedAt)
	a.DayOfWeek = int(day)
	return a, err
}
