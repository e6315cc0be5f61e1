package booking

import (
	"context"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

type ServiceSummary struct {
	ID              string
	Name            string
	DurationMinutes int
	Price           string
}

type VehicleSummary struct {
	ID    string
	Make  string
	Model string
	Year  int
	Plate string
}

type PartySummary struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// View is an appointment joined with the records it references. A summary is
// nil when the referenced record is unset or could not be loaded.
type View struct {
	model.Appointment
	Service  *ServiceSummary
	Vehicle  *VehicleSummary
	Customer *PartySummary
	Provider *PartySummary
}

// joiner caches lookups across the appointments of one response.
type joiner struct {
	s        *Service
	services map[string]*ServiceSummary
	vehicles map[string]*VehicleSummary
	users    map[string]*PartySummary
}

func (s *Service) newJoiner() *joiner {
	return &joiner{
		s:        s,
		services: map[string]*ServiceSummary{},
		vehicles: map[string]*VehicleSummary{},
		users:    map[string]*PartySummary{},
	}
}

func (j *joiner) view(ctx context.Context, a model.Appointment) View {
	return View{
		Appointment: a,
		Service:     j.service(ctx, a.ServiceID),
		Vehicle:     j.vehicle(ctx, a.VehicleID),
		Customer:    j.user(ctx, a.CustomerID),
		Provider:    j.user(ctx, a.ProviderID),
	}
}

func (j *joiner) service(ctx context.Context, id string) *ServiceSummary {
	if id == "" {
		return nil
	}
	if v, ok := j.services[id]; ok {
		return v
	}
	var out *ServiceSummary
	svc, found, err := j.s.deps.Services.GetService(ctx, id)
	if err != nil {
		j.s.logger.Warn("view: load service", "service_id", id, "err", err)
	} else if found {
		out = &ServiceSummary{ID: svc.ID, Name: svc.Name, DurationMinutes: svc.DurationMinutes, Price: svc.Price}
	}
	j.services[id] = out
	return out
}

func (j *joiner) vehicle(ctx context.Context, id string) *VehicleSummary {
	if id == "" {
		return nil
	}
	if v, ok := j.vehicles[id]; ok {
		return v
	}
	var out *VehicleSummary
	veh, found, err := j.s.deps.Vehicles.GetVehicle(ctx, id)
	if err != nil {
		j.s.logger.Warn("view: load vehicle", "vehicle_id", id, "err", err)
	} else if found {
		out = &VehicleSummary{ID: veh.ID, Make: veh.Make, Model: veh.Model, Year: veh.Year, Plate: veh.Plate}
	}
	j.vehicles[id] = out
	return out
}

func (j *joiner) user(ctx context.Context, id string) *PartySummary {
	if id == "" {
		return nil
	}
	if v, ok := j.users[id]; ok {
		return v
	}
	var out *PartySummary
	u, found, err := j.s.deps.Users.GetUser(ctx, id)
	if err != nil {
		j.s.logger.Warn("view: load user", "user_id", id, "err", err)
	} else if found {
		out = &PartySummary{ID: u.ID, Name: u.FullName(), Email: u.Email, Phone: u.Phone}
	}
	j.users[id] = out
	return out
}
