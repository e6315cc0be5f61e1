package handlers

import (
	"time"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/schedule"
)

type serviceJSON struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

type vehicleJSON struct {
	ID    string `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Plate string `json:"license_plate,omitempty"`
}

type partyJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type appointmentJSON struct {
	ID                 string       `json:"id"`
	CustomerID         string       `json:"customer_id"`
	ProviderID         *string      `json:"provider_id"`
	ServiceID          string       `json:"service_id"`
	VehicleID          string       `json:"vehicle_id"`
	StartTime          string       `json:"start_time"`
	EndTime            string       `json:"end_time"`
	Status             string       `json:"status"`
	Notes              string       `json:"notes"`
	CancellationReason string       `json:"cancellation_reason,omitempty"`
	CreatedAt          string       `json:"created_at"`
	UpdatedAt          string       `json:"updated_at"`
	Service            *serviceJSON `json:"service,omitempty"`
	Vehicle            *vehicleJSON `json:"vehicle,omitempty"`
	Customer           *partyJSON   `json:"customer,omitempty"`
	Provider           *partyJSON   `json:"provider,omitempty"`
}

func toAppointmentJSON(v booking.View) appointmentJSON {
	out := appointmentJSON{
		ID:                 v.ID,
		CustomerID:         v.CustomerID,
		ServiceID:          v.ServiceID,
		VehicleID:          v.VehicleID,
		StartTime:          v.StartTime.Format(time.RFC3339),
		EndTime:            v.EndTime.Format(time.RFC3339),
		Status:             string(v.Status),
		Notes:              v.Notes,
		CancellationReason: v.CancellationReason,
		CreatedAt:          v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          v.UpdatedAt.Format(time.RFC3339),
	}
	if v.ProviderID != "" {
		id := v.ProviderID
		out.ProviderID = &id
	}
	if s := v.Service; s != nil {
		out.Service = &serviceJSON{ID: s.ID, Name: s.Name, DurationMinutes: s.DurationMinutes, Price: s.Price}
	}
	if veh := v.Vehicle; veh != nil {
		out.Vehicle = &vehicleJSON{ID: veh.ID, Make: veh.Make, Model: veh.Model, Year: veh.Year, Plate: veh.Plate}
	}
	if c := v.Customer; c != nil {
		out.Customer = &partyJSON{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
	}
	if p := v.Provider; p != nil {
		out.Provider = &partyJSON{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone}
	}
	return out
}

type slotJSON struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

type slotsResponse struct {
	ServiceID  string     `json:"service_id"`
	ProviderID string     `json:"provider_id,omitempty"`
	Date       string     `json:"date"`
	Slots      []slotJSON `json:"slots"`
}

func toSlotsJSON(slots []calendar.Slot) []slotJSON {
	out := make([]slotJSON, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotJSON{
			StartTime: s.Start.Format(time.RFC3339),
			EndTime:   s.End.Format(time.RFC3339),
			Available: s.Available,
		})
	}
	return out
}

type availabilityJSON struct {
	ProviderID  string `json:"provider_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

func toAvailabilityJSON(a model.Availability) availabilityJSON {
	return availabilityJSON{
		ProviderID:  a.ProviderID,
		DayOfWeek:   a.DayOfWeek,
		StartTime:   schedule.FormatClock(a.StartMinute),
		EndTime:     schedule.FormatClock(a.EndMinute),
		IsAvailable: a.IsAvailable,
	}
}
