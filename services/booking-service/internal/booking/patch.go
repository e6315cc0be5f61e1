package booking

import (
	"time"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

// Patch is a partial update. Nil fields are left untouched; an empty
// ProviderID unassigns the appointment.
type Patch struct {
	Status             *model.Status
	Notes              *string
	CancellationReason *string
	ProviderID         *string
	CustomerID         *string
	ServiceID          *string
	VehicleID          *string
	StartTime          *time.Time
	EndTime            *time.Time
}

func (p Patch) fields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.Status != nil, "status")
	add(p.Notes != nil, "notes")
	add(p.CancellationReason != nil, "cancellation_reason")
	add(p.ProviderID != nil, "provider_id")
	add(p.CustomerID != nil, "customer_id")
	add(p.ServiceID != nil, "service_id")
	add(p.VehicleID != nil, "vehicle_id")
	add(p.StartTime != nil, "start_time")
	add(p.EndTime != nil, "end_time")
	return out
}

func (p Patch) Empty() bool { return len(p.fields()) == 0 }

// patchable lists the fields each non-admin role may change. Admins may
// change any field.
var patchable = map[model.Role]map[string]bool{
	model.RoleCustomer: {"status": true, "notes": true, "cancellation_reason": true},
	model.RoleProvider: {"status": true, "notes": true},
}

func (p Patch) allowedFor(role model.Role) bool {
	if role == model.RoleAdmin {
		return true
	}
	allowed, ok := patchable[role]
	if !ok {
		return false
	}
	for _, f := range p.fields() {
		if !allowed[f] {
			return false
		}
	}
	return true
}

// apply returns a copy of a with the patch applied.
func (p Patch) apply(a model.Appointment) model.Appointment {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.CancellationReason != nil {
		a.CancellationReason = *p.CancellationReason
	}
	if p.ProviderID != nil {
		a.ProviderID = *p.ProviderID
	}
	if p.CustomerID != nil {
		a.CustomerID = *p.CustomerID
	}
	if p.ServiceID != nil {
		a.ServiceID = *p.ServiceID
	}
	if p.VehicleID != nil {
		a.VehicleID = *p.VehicleID
	}
	if p.StartTime != nil {
		a.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		a.EndTime = *p.EndTime
	}
	return a
}
