// Package memstore is an in-memory implementation of the booking and schedule
// ports. Transactions are serialized and staged, so a failed transaction
// leaves no trace. Used by tests and by the service when DATABASE_URL is unset.
package memstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/outbox"
)

var errDuplicateID = errors.New("memstore: duplicate appointment id")

type availabilityKey struct {
	providerID string
	day        int
}

type Store struct {
	txMu sync.Mutex // one transaction at a time
	mu   sync.RWMutex

	services     map[string]model.Service
	vehicles     map[string]model.Vehicle
	users        map[string]model.User
	appointments map[string]model.Appointment
	availability map[availabilityKey]model.Availability
	events       []outbox.Event
	scopes       []booking.LockScope
}

func New() *Store {
	return &Store{
		services:     map[string]model.Service{},
		vehicles:     map[string]model.Vehicle{},
		users:        map[string]model.User{},
		appointments: map[string]model.Appointment{},
		availability: map[availabilityKey]model.Availability{},
	}
}

func (s *Store) PutService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *Store) PutVehicle(v model.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutAppointment stores a without conflict checks, for seeding.
func (s *Store) PutAppointment(a model.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[a.ID] = a
}

// Events returns the committed outbox events in order.
func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Scopes returns the lock scope of every transaction started so far.
func (s *Store) Scopes() []booking.LockScope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.scopes)
}

func (s *Store) GetService(_ context.Context, id string) (model.Service, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	return svc, ok, nil
}

func (s *Store) GetVehicle(_ context.Context, id string) (model.Vehicle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	return v, ok, nil
}

func (s *Store) GetUser(_ context.Context, id string) (model.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (model.Appointment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	return a, ok, nil
}

func (s *Store) ListAppointments(_ context.Context, q booking.ListQuery) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		switch {
		case q.CustomerID != "" && a.CustomerID != q.CustomerID,
			q.ProviderID != "" && a.ProviderID != q.ProviderID,
			q.Status != "" && a.Status != q.Status,
			!q.From.IsZero() && a.StartTime.Before(q.From),
			!q.To.IsZero() && a.StartTime.After(q.To):
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b model.Appointment) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) HasOverlap(_ context.Context, q booking.ConflictQuery) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return overlaps(s.appointments, nil, q), nil
}

func overlaps(committed, staged map[string]model.Appointment, q booking.ConflictQuery) bool {
	want := calendar.Interval{Start: q.Start, End: q.End}
	check := func(a model.Appointment) bool {
		if a.ID == q.ExcludeID || !a.Status.Occupying() {
			return false
		}
		if q.ProviderID != "" && a.ProviderID != q.ProviderID {
			return false
		}
		return want.Overlaps(calendar.Interval{Start: a.StartTime, End: a.EndTime})
	}
	for id, a := range staged {
		if id != q.ExcludeID && check(a) {
			return true
		}
	}
	for id, a := range committed {
		if _, shadowed := staged[id]; shadowed {
			continue
		}
		if check(a) {
			return true
		}
	}
	return false
}

func (s *Store) WithinTx(ctx context.Context, scope booking.LockScope, fn func(context.Context, booking.AppointmentTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.scopes = append(s.scopes, scope)
	s.mu.Unlock()

	tx := &memTx{store: s, staged: map[string]model.Appointment{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range tx.staged {
		s.appointments[id] = a
	}
	s.events = append(s.events, tx.events...)
	return nil
}

type memTx struct {
	store  *Store
	staged map[string]model.Appointment
	events []outbox.Event
}

func (t *memTx) GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, bool, error) {
	if a, ok := t.staged[id]; ok {
		return a, true, nil
	}
	return t.store.GetAppointment(ctx, id)
}

func (t *memTx) HasOverlap(_ context.Context, q booking.ConflictQuery) (bool, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return overlaps(t.store.appointments, t.staged, q), nil
}

func (t *memTx) InsertAppointment(ctx context.Context, a model.Appointment) error {
	if _, ok, _ := t.GetAppointmentForUpdate(ctx, a.ID); ok {
		return errDuplicateID
	}
	t.staged[a.ID] = a
	return nil
}

func (t *memTx) UpdateAppointment(_ context.Context, a model.Appointment) error {
	t.staged[a.ID] = a
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

func (s *Store) GetAvailability(_ context.Context, providerID string, day int) (model.Availability, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.availability[availabilityKey{providerID, day}]
	return a, ok, nil
}

func (s *Store) UpsertAvailability(_ context.Context, a model.Availability) (model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availability[availabilityKey{a.ProviderID, a.DayOfWeek}] = a
	return a, nil
}

func (s *Store) ListAvailability(_ context.Context, providerID string) ([]model.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Availability
	for k, a := range s.availability {
		if k.providerID == providerID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Availability) int { return a.DayOfWeek - b.DayOfWeek })
	return out, nil
}

func (s *Store) DeleteAvailability(_ context.Context, providerID string, day int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := availabilityKey{providerID, day}
	if _, ok := s.availability[k]; !ok {
		return false, nil
	}
	delete(s.availability, k)
	return true, nil
}
