package memstore

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

// Seed is the JSON document accepted by LoadSeed. Catalog rows are owned by
// other systems in production; the seed stands in for them in dev.
type Seed struct {
	Services []struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Description     string `json:"description"`
		DurationMinutes int    `json:"duration_minutes"`
		Price           string `json:"price"`
		IsActive        *bool  `json:"is_active"`
	} `json:"services"`
	Vehicles []struct {
		ID      string `json:"id"`
		OwnerID string `json:"owner_id"`
		Make    string `json:"make"`
		Model   string `json:"model"`
		Year    int    `json:"year"`
		Plate   string `json:"license_plate"`
	} `json:"vehicles"`
	Users []struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Role      string `json:"role"`
	} `json:"users"`
}

// LoadSeed reads a Seed from r and stores its rows. Services default to active.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, u := range seed.Users {
		role := model.Role(u.Role)
		switch role {
		case model.RoleCustomer, model.RoleProvider, model.RoleAdmin:
		default:
			return fmt.Errorf("seed user %q: unknown role %q", u.ID, u.Role)
		}
		s.PutUser(model.User{
			ID: u.ID, FirstName: u.FirstName, LastName: u.LastName,
			Email: u.Email, Phone: u.Phone, Role: role, IsActive: true,
		})
	}
	for _, svc := range seed.Services {
		if svc.DurationMinutes <= 0 {
			return fmt.Errorf("seed service %q: duration_minutes must be positive", svc.ID)
		}
		active := svc.IsActive == nil || *svc.IsActive
		s.PutService(model.Service{
			ID: svc.ID, Name: svc.Name, Description: svc.Description,
			DurationMinutes: svc.DurationMinutes, Price: svc.Price, IsActive: active,
		})
	}
	for _, v := range seed.Vehicles {
		s.PutVehicle(model.Vehicle{
			ID: v.ID, OwnerID: v.OwnerID, Make: v.Make, Model: v.Model, Year: v.Year, Plate: v.Plate,
		})
	}
	return nil
}
