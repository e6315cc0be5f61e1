// Package booking is the appointment lifecycle: creation with conflict
// detection, role-scoped updates and cancellation, listing and slot lookup.
// Storage, locking and notification delivery are reached through the ports
// in ports.go.
package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/outbox"
)

var tracer = otel.Tracer("github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking")

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role model.Role
}

type CreateRequest struct {
	ServiceID  string
	VehicleID  string
	ProviderID string // optional
	StartTime  time.Time
	Notes      string
}

type ListFilter struct {
	Status    model.Status
	StartDate time.Time
	EndDate   time.Time
}

type Deps struct {
	Services     ServiceRepository
	Vehicles     VehicleRepository
	Users        UserRepository
	Appointments AppointmentRepository
	Tx           TxRunner
	Schedule     ScheduleReader // optional
	Notifier     Notifier       // optional

	Logger          *slog.Logger
	Now             func() time.Time
	ReminderOffsets []time.Duration
	NotifyTimeout   time.Duration
}

type Service struct {
	policy calendar.Policy
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func NewService(policy calendar.Policy, deps Deps) *Service {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NotifyTimeout <= 0 {
		deps.NotifyTimeout = 10 * time.Second
	}
	return &Service{policy: policy, deps: deps, logger: deps.Logger, now: deps.Now}
}

func (s *Service) Policy() calendar.Policy { return s.policy }

func (s *Service) Create(ctx context.Context, customerID string, req CreateRequest) (view View, err error) {
	ctx, span := tracer.Start(ctx, "booking.Create")
	defer func() { endSpan(span, err) }()

	customerID = strings.TrimSpace(customerID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.VehicleID = strings.TrimSpace(req.VehicleID)
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if customerID == "" || req.ServiceID == "" || req.VehicleID == "" || req.StartTime.IsZero() {
		return View{}, validationError("missing required fields: service_id, vehicle_id and start_time are required")
	}

	svc, found, err := s.deps.Services.GetService(ctx, req.ServiceID)
	if err != nil {
		return View{}, persistence("load service", err)
	}
	if !found || !svc.IsActive {
		return View{}, &Error{Kind: KindNotFound, Msg: "service not found or inactive"}
	}
	if svc.DurationMinutes <= 0 {
		return View{}, validationError("service %s has no duration", svc.ID)
	}

	veh, found, err := s.deps.Vehicles.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		return View{}, persistence("load vehicle", err)
	}
	if !found || veh.OwnerID != customerID {
		return View{}, &Error{Kind: KindNotFound, Msg: "vehicle not found or does not belong to customer"}
	}

	if req.ProviderID != "" {
		if err := s.requireProvider(ctx, req.ProviderID); err != nil {
			return View{}, err
		}
	}

	customer, found, err := s.deps.Users.GetUser(ctx, customerID)
	if err != nil {
		return View{}, persistence("load customer", err)
	}
	if !found {
		customer = model.User{ID: customerID}
	}

	now := s.now()
	start := req.StartTime
	end := start.Add(svc.Duration())
	if err := s.policy.Validate(start, end, now); err != nil {
		return View{}, &Error{Kind: KindValidation, Msg: err.Error(), Err: err}
	}

	appt := model.Appointment{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		ProviderID: req.ProviderID,
		ServiceID:  svc.ID,
		VehicleID:  veh.ID,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		Status:     model.StatusPending,
		Notes:      req.Notes,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID), attribute.String("provider.id", appt.ProviderID))

	created, err := appointmentEvent(outbox.TopicAppointmentCreated, appt)
	if err != nil {
		return View{}, persistence("build event", err)
	}
	reminders, err := reminderEvents(appt, customer, s.deps.ReminderOffsets, now)
	if err != nil {
		return View{}, persistence("build reminder", err)
	}

	err = s.deps.Tx.WithinTx(ctx, ScopeFor(appt.ProviderID), func(ctx context.Context, tx AppointmentTx) error {
		taken, err := tx.HasOverlap(ctx, ConflictQuery{ProviderID: appt.ProviderID, Start: appt.StartTime, End: appt.EndTime})
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return err
		}
		return appendEvents(ctx, tx, append([]outbox.Event{created}, reminders...)...)
	})
	if err != nil {
		return View{}, persistence("create appointment", err)
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID, "customer_id", appt.CustomerID, "provider_id", appt.ProviderID,
		"start_time", appt.StartTime.Format(time.RFC3339))

	view = s.newJoiner().view(ctx, appt)
	s.notify(ctx, EventCreated, view)
	return view, nil
}

func (s *Service) Update(ctx context.Context, id string, actor Actor, patch Patch) (view View, err error) {
	ctx, span := tracer.Start(ctx, "booking.Update", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	current, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := authorizeUpdate(actor, current, patch); err != nil {
		return View{}, err
	}
	if patch.Empty() {
		return View{}, validationError("no fields to update")
	}
	if err := s.checkReferences(ctx, patch); err != nil {
		return View{}, err
	}

	scope := LockScope{}
	if needsConflictCheck(current, patch.apply(current)) {
		scope = ScopeFor(patch.apply(current).ProviderID)
	}

	now := s.now()
	var updated model.Appointment
	err = s.deps.Tx.WithinTx(ctx, scope, func(ctx context.Context, tx AppointmentTx) error {
		fresh, found, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return notFound("appointment")
		}
		if err := authorizeUpdate(actor, fresh, patch); err != nil {
			return err
		}
		next := patch.apply(fresh)
		if err := s.checkUpdate(actor, fresh, next, patch, now); err != nil {
			return err
		}
		if (patch.StartTime != nil || patch.EndTime != nil) && !next.StartTime.Before(next.EndTime) {
			return &Error{Kind: KindValidation, Msg: calendar.ErrStartNotBeforeEnd.Error(), Err: calendar.ErrStartNotBeforeEnd}
		}
		if needsConflictCheck(fresh, next) {
			if !scope.covers(next.ProviderID) {
				return &Error{Kind: KindPersistence, Msg: "appointment changed concurrently", Retryable: true}
			}
			taken, err := tx.HasOverlap(ctx, ConflictQuery{ProviderID: next.ProviderID, Start: next.StartTime, End: next.EndTime, ExcludeID: id})
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotTaken
			}
		}
		next.UpdatedAt = now.UTC()
		if err := tx.UpdateAppointment(ctx, next); err != nil {
			return err
		}
		evt, err := appointmentEvent(outbox.TopicAppointmentUpdated, next)
		if err != nil {
			return err
		}
		updated = next
		return tx.AppendEvent(ctx, evt)
	})
	if err != nil {
		return View{}, persistence("update appointment", err)
	}

	s.logger.Info("appointment updated", "appointment_id", id, "actor_id", actor.ID, "role", string(actor.Role), "status", string(updated.Status))
	return s.newJoiner().view(ctx, updated), nil
}

func (s *Service) Cancel(ctx context.Context, id string, actor Actor, reason string) (view View, err error) {
	ctx, span := tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	current, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if !canSee(actor, current) {
		return View{}, ErrUnauthorized
	}

	now := s.now()
	var cancelled model.Appointment
	err = s.deps.Tx.WithinTx(ctx, LockScope{}, func(ctx context.Context, tx AppointmentTx) error {
		fresh, found, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return notFound("appointment")
		}
		if fresh.Status == model.StatusCancelled {
			return ErrAlreadyCancelled
		}
		if actor.Role == model.RoleCustomer && !s.policy.CanCancel(fresh.StartTime, now) {
			return ErrCancellationWindow
		}
		if s.policy.StrictTransitions && !fresh.Status.CanTransitionTo(model.StatusCancelled) {
			return ErrInvalidTransition
		}
		fresh.Status = model.StatusCancelled
		fresh.CancellationReason = reason
		fresh.UpdatedAt = now.UTC()
		if err := tx.UpdateAppointment(ctx, fresh); err != nil {
			return err
		}
		evt, err := appointmentEvent(outbox.TopicAppointmentCancelled, fresh)
		if err != nil {
			return err
		}
		cancelled = fresh
		return tx.AppendEvent(ctx, evt)
	})
	if err != nil {
		return View{}, persistence("cancel appointment", err)
	}

	s.logger.Info("appointment cancelled", "appointment_id", id, "actor_id", actor.ID, "role", string(actor.Role))

	view = s.newJoiner().view(ctx, cancelled)
	s.notify(ctx, EventCancelled, view)
	return view, nil
}

func (s *Service) Get(ctx context.Context, id string, actor Actor) (View, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if !canSee(actor, appt) {
		return View{}, ErrUnauthorized
	}
	return s.newJoiner().view(ctx, appt), nil
}

// List returns the appointments visible to actor, latest start first.
func (s *Service) List(ctx context.Context, actor Actor, filter ListFilter) ([]View, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("invalid status %q", filter.Status)
	}
	q := ListQuery{Status: filter.Status, From: filter.StartDate, To: filter.EndDate}
	switch actor.Role {
	case model.RoleCustomer:
		q.CustomerID = actor.ID
	case model.RoleProvider:
		q.ProviderID = actor.ID
	case model.RoleAdmin:
	default:
		return nil, ErrUnauthorized
	}

	appts, err := s.deps.Appointments.ListAppointments(ctx, q)
	if err != nil {
		return nil, persistence("list appointments", err)
	}
	j := s.newJoiner()
	views := make([]View, 0, len(appts))
	for _, a := range appts {
		views = append(views, j.view(ctx, a))
	}
	return views, nil
}

// HasConflict reports whether [q.Start, q.End) overlaps an occupying
// appointment, outside any lock. Writers repeat the check in their transaction.
func (s *Service) HasConflict(ctx context.Context, q ConflictQuery) (bool, error) {
	taken, err := s.deps.Appointments.HasOverlap(ctx, q)
	if err != nil {
		return false, persistence("check conflicts", err)
	}
	return taken, nil
}

// AvailableSlots lists candidate starts for serviceID on date. An empty
// providerID checks every provider's calendar.
func (s *Service) AvailableSlots(ctx context.Context, serviceID string, date time.Time, providerID string) (slots []calendar.Slot, err error) {
	ctx, span := tracer.Start(ctx, "booking.AvailableSlots")
	defer func() { endSpan(span, err) }()

	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" || date.IsZero() {
		return nil, validationError("service_id and date are required")
	}
	svc, found, err := s.deps.Services.GetService(ctx, serviceID)
	if err != nil {
		return nil, persistence("load service", err)
	}
	if !found {
		return nil, notFound("service")
	}
	if svc.DurationMinutes <= 0 {
		return nil, validationError("service %s has no duration", svc.ID)
	}

	occupied := func(iv calendar.Interval) (bool, error) {
		return s.HasConflict(ctx, ConflictQuery{ProviderID: providerID, Start: iv.Start, End: iv.End})
	}
	if s.policy.RespectProviderSchedule && providerID != "" && s.deps.Schedule != nil {
		occupied, err = s.withProviderSchedule(ctx, providerID, date, occupied)
		if err != nil {
			return nil, err
		}
	}

	slots, err = s.policy.Slots(date, svc.Duration(), occupied)
	if err != nil {
		return nil, persistence("generate slots", err)
	}
	return slots, nil
}

// withProviderSchedule marks slots outside the provider's window for that
// weekday unavailable. A weekday without a stored window is not restricted.
func (s *Service) withProviderSchedule(ctx context.Context, providerID string, date time.Time, next calendar.Occupied) (calendar.Occupied, error) {
	day := date.In(s.policy.Location)
	avail, found, err := s.deps.Schedule.GetAvailability(ctx, providerID, model.DayOfWeek(day.Weekday()))
	if err != nil {
		return nil, persistence("load provider schedule", err)
	}
	if !found {
		return next, nil
	}
	return func(iv calendar.Interval) (bool, error) {
		if !avail.IsAvailable {
			return true, nil
		}
		open, closing := avail.Window(iv.Start.In(s.policy.Location))
		if !(calendar.Interval{Start: open, End: closing}).Contains(iv) {
			return true, nil
		}
		return next(iv)
	}, nil
}

func (s *Service) load(ctx context.Context, id string) (model.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Appointment{}, notFound("appointment")
	}
	appt, found, err := s.deps.Appointments.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, persistence("load appointment", err)
	}
	if !found {
		return model.Appointment{}, notFound("appointment")
	}
	return appt, nil
}

func (s *Service) requireProvider(ctx context.Context, id string) error {
	u, found, err := s.deps.Users.GetUser(ctx, id)
	if err != nil {
		return persistence("load provider", err)
	}
	if !found || u.Role != model.RoleProvider || !u.IsActive {
		return notFound("provider")
	}
	return nil
}

// checkReferences verifies records an admin patch points at.
func (s *Service) checkReferences(ctx context.Context, patch Patch) error {
	if patch.ServiceID != nil {
		_, found, err := s.deps.Services.GetService(ctx, *patch.ServiceID)
		if err != nil {
			return persistence("load service", err)
		}
		if !found {
			return notFound("service")
		}
	}
	if patch.VehicleID != nil {
		_, found, err := s.deps.Vehicles.GetVehicle(ctx, *patch.VehicleID)
		if err != nil {
			return persistence("load vehicle", err)
		}
		if !found {
			return notFound("vehicle")
		}
	}
	if patch.ProviderID != nil && *patch.ProviderID != "" {
		return s.requireProvider(ctx, *patch.ProviderID)
	}
	return nil
}

func (s *Service) checkUpdate(actor Actor, old, next model.Appointment, patch Patch, now time.Time) error {
	if !next.Status.Valid() {
		return validationError("invalid status %q", next.Status)
	}
	if actor.Role == model.RoleCustomer {
		if patch.CancellationReason != nil && next.Status != model.StatusCancelled {
			return validationError("cancellation_reason requires status cancelled")
		}
		if patch.Status != nil {
			if old.Status == model.StatusCancelled {
				return ErrAlreadyCancelled
			}
			if !s.policy.CanCancel(old.StartTime, now) {
				return ErrCancellationWindow
			}
		}
	}
	if s.policy.StrictTransitions && !old.Status.CanTransitionTo(next.Status) {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Service) notify(ctx context.Context, evt Event, view View) {
	if s.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.NotifyTimeout)
	defer cancel()
	if err := s.deps.Notifier.Notify(ctx, evt, view); err != nil {
		s.logger.Warn("notification failed", "event", string(evt), "appointment_id", view.ID, "err", err)
	}
}

func authorizeUpdate(actor Actor, appt model.Appointment, patch Patch) error {
	switch actor.Role {
	case model.RoleCustomer:
		if appt.CustomerID != actor.ID {
			return ErrUnauthorized
		}
		if patch.Status != nil && *patch.Status != model.StatusCancelled {
			return ErrUnauthorized
		}
	case model.RoleProvider:
		if appt.ProviderID == "" || appt.ProviderID != actor.ID {
			return ErrUnauthorized
		}
	case model.RoleAdmin:
	default:
		return ErrUnauthorized
	}
	if !patch.allowedFor(actor.Role) {
		return ErrUnauthorized
	}
	return nil
}

func canSee(actor Actor, appt model.Appointment) bool {
	switch actor.Role {
	case model.RoleCustomer:
		return appt.CustomerID == actor.ID
	case model.RoleProvider:
		return appt.ProviderID != "" && appt.ProviderID == actor.ID
	case model.RoleAdmin:
		return true
	}
	return false
}

// needsConflictCheck is true when next occupies calendar time it did not
// occupy before.
func needsConflictCheck(old, next model.Appointment) bool {
	if !next.Status.Occupying() {
		return false
	}
	return !old.Status.Occupying() ||
		old.ProviderID != next.ProviderID ||
		!old.StartTime.Equal(next.StartTime) ||
		!old.EndTime.Equal(next.EndTime)
}

func (l LockScope) covers(providerID string) bool {
	if l.Global {
		return true
	}
	if providerID == "" {
		return false
	}
	for _, id := range l.ProviderIDs {
		if id == providerID {
			return true
		}
	}
	return false
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
