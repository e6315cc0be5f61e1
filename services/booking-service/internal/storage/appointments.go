package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/autobook/libs/db"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const appointmentColumns = `
	id, customer_id, COALESCE(provider_id, ''), service_id, vehicle_id,
	start_time, end_time, status, notes, cancellation_reason, created_at, updated_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) GetAppointment(ctx context.Context, id string) (model.Appointment, bool, error) {
	return getAppointment(ctx, r.pool, id, false)
}

func (r *AppointmentRepository) HasOverlap(ctx context.Context, q booking.ConflictQuery) (bool, error) {
	return hasOverlap(ctx, r.pool, q)
}

// ListAppointments orders by start_time descending.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, q booking.ListQuery) ([]model.Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.CustomerID != "" {
		add("customer_id = $%d", q.CustomerID)
	}
	if q.ProviderID != "" {
		add("provider_id = $%d", q.ProviderID)
	}
	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if !q.From.IsZero() {
		add("start_time >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("start_time <= $%d", q.To)
	}

	sql := "SELECT " + appointmentColumns + " FROM appointments"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY start_time DESC, id"

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAppointment)
}

func getAppointment(ctx context.Context, q querier, id string, forUpdate bool) (model.Appointment, bool, error) {
	sql := "SELECT " + appointmentColumns + " FROM appointments WHERE id = $1"
	if forUpdate {
		sql += " FOR UPDATE"
	}
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return model.Appointment{}, false, err
	}
	appt, err := pgx.CollectExactlyOneRow(rows, scanAppointment)
	if db.IsNotFound(err) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func scanAppointment(row pgx.CollectableRow) (model.Appointment, error) {
	var a model.Appointment
	var status string
	err := row.Scan(&a.ID, &a.CustomerID, &a.ProviderID, &a.ServiceID, &a.VehicleID,
		&a.StartTime, &a.EndTime, &status, &a.Notes, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	a.Status = model.Status(status)
	return a, err
}

// hasOverlap is the half-open overlap test run in SQL: only occupying
// statuses count, an empty provider means every provider.
func hasOverlap(ctx context.Context, q querier, c booking.ConflictQuery) (bool, error) {
	statuses := make([]string, 0, len(model.OccupyingStatuses))
	for _, s := range model.OccupyingStatuses {
		statuses = append(statuses, string(s))
	}
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE status = ANY($1)
				AND ($2::text = '' OR provider_id = $2)
				AND ($3::text = '' OR id <> $3)
				AND start_time < $5
				AND end_time > $4
		)
	`, statuses, c.ProviderID, c.ExcludeID, c.Start, c.End).Scan(&exists)
	return exists, err
}

func insertAppointment(ctx context.Context, q querier, a model.Appointment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO appointments
			(id, customer_id, provider_id, service_id, vehicle_id, start_time, end_time,
			 status, notes, cancellation_reason, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.CustomerID, a.ProviderID, a.ServiceID, a.VehicleID, a.StartTime, a.EndTime,
		string(a.Status), a.Notes, a.CancellationReason, a.CreatedAt, a.UpdatedAt)
	return err
}

func updateAppointment(ctx context.Context, q querier, a model.Appointment) error {
	tag, err := q.Exec(ctx, `
		UPDATE appointments
		SET customer_id = $2,
			provider_id = NULLIF($3, ''),
			service_id = $4,
			vehicle_id = $5,
			start_time = $6,
			end_time = $7,
			status = $8,
			notes = $9,
			cancellation_reason = $10,
			updated_at = $11
		WHERE id = $1
	`, a.ID, a.CustomerID, a.ProviderID, a.ServiceID, a.VehicleID, a.StartTime, a.EndTime,
		string(a.Status), a.Notes, a.CancellationReason, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
