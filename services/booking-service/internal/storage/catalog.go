package storage

import (
	"context"

	"github.com/md-rashed-zaman/autobook/libs/db"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

// CatalogRepository reads services, vehicles and users. Those tables are
// owned by the catalog and identity layers; the booking service only reads.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) GetService(ctx context.Context, id string) (model.Service, bool, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, duration_minutes, price::text, is_active
		FROM services WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.IsActive)
	return found(s, err)
}

func (r *CatalogRepository) GetVehicle(ctx context.Context, id string) (model.Vehicle, bool, error) {
	var v model.Vehicle
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, make, model, year, license_plate
		FROM vehicles WHERE id = $1
	`, id).Scan(&v.ID, &v.OwnerID, &v.Make, &v.Model, &v.Year, &v.Plate)
	return found(v, err)
}

func (r *CatalogRepository) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	var u model.User
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, role, is_active
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &role, &u.IsActive)
	u.Role = model.Role(role)
	return found(u, err)
}

func found[T any](v T, err error) (T, bool, error) {
	var zero T
	if db.IsNotFound(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}
