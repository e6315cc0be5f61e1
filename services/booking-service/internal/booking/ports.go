package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/outbox"
)

type ServiceRepository interface {
	GetService(ctx context.Context, id string) (model.Service, bool, error)
}

type VehicleRepository interface {
	GetVehicle(ctx context.Context, id string) (model.Vehicle, bool, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (model.User, bool, error)
}

// ScheduleReader exposes a provider's weekly availability to slot generation.
type ScheduleReader interface {
	GetAvailability(ctx context.Context, providerID string, dayOfWeek int) (model.Availability, bool, error)
}

// ConflictQuery asks whether any occupying appointment overlaps [Start, End).
// An empty ProviderID checks every provider's calendar.
type ConflictQuery struct {
	ProviderID string
	Start      time.Time
	End        time.Time
	ExcludeID  string
}

type ListQuery struct {
	CustomerID string
	ProviderID string
	Status     model.Status
	From       time.Time // start_time >= From when set
	To         time.Time // start_time <= To when set
}

type AppointmentRepository interface {
	GetAppointment(ctx context.Context, id string) (model.Appointment, bool, error)
	ListAppointments(ctx context.Context, q ListQuery) ([]model.Appointment, error)
	HasOverlap(ctx context.Context, q ConflictQuery) (bool, error)
}

// AppointmentTx is the write side, only reachable inside TxRunner.WithinTx.
type AppointmentTx interface {
	GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, bool, error)
	HasOverlap(ctx context.Context, q ConflictQuery) (bool, error)
	InsertAppointment(ctx context.Context, appt model.Appointment) error
	UpdateAppointment(ctx context.Context, appt model.Appointment) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

// LockScope names the calendars a transaction must hold exclusively while it
// checks for conflicts and writes. Global serializes against every provider;
// the zero value takes no calendar lock (row locks only).
type LockScope struct {
	Global      bool
	ProviderIDs []string
}

// ScopeFor returns the scope guarding a conflict check for providerID. The
// empty provider id means an unassigned booking, checked globally.
func ScopeFor(providerID string) LockScope {
	if providerID == "" {
		return LockScope{Global: true}
	}
	return LockScope{ProviderIDs: []string{providerID}}
}

// TxRunner runs fn atomically: on error nothing fn wrote is kept. Transient
// contention may cause fn to be retried, so fn must not have side effects
// outside tx.
type TxRunner interface {
	WithinTx(ctx context.Context, scope LockScope, fn func(ctx context.Context, tx AppointmentTx) error) error
}

type Event string

const (
	EventCreated   Event = "created"
	EventCancelled Event = "cancelled"
)

// Notifier receives lifecycle events after commit. Failures are logged by
// the caller and never undo the operation.
type Notifier interface {
	Notify(ctx context.Context, evt Event, view View) error
}
