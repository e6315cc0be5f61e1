package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/schedule"
)

type Handler struct {
	bookings *booking.Service
	schedule *schedule.Service
	logger   *slog.Logger
	loc      *time.Location
}

func New(bookings *booking.Service, sched *schedule.Service, logger *slog.Logger) *Handler {
	return &Handler{bookings: bookings, schedule: sched, logger: logger, loc: bookings.Policy().Location}
}

// Register mounts the API on mux. Callers wrap mux with the auth middleware.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/appointments", h.createAppointment)
	mux.HandleFunc("GET /api/v1/appointments", h.listAppointments)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.getAppointment)
	mux.HandleFunc("PATCH /api/v1/appointments/{id}", h.updateAppointment)
	mux.HandleFunc("POST /api/v1/appointments/{id}/cancel", h.cancelAppointment)
	mux.HandleFunc("GET /api/v1/slots", h.availableSlots)
	mux.HandleFunc("GET /api/v1/providers/{id}/availability", h.listAvailability)
	mux.HandleFunc("PUT /api/v1/providers/{id}/availability", h.setAvailability)
	mux.HandleFunc("DELETE /api/v1/providers/{id}/availability/{day}", h.deleteAvailability)
}

type createAppointmentRequest struct {
	ServiceID  string `json:"service_id"`
	VehicleID  string `json:"vehicle_id"`
	ProviderID string `json:"provider_id"`
	StartTime  string `json:"start_time"`
	Notes      string `json:"notes"`
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.StartTime) == "" {
		writeMessage(w, http.StatusBadRequest, "missing required fields: service_id, vehicle_id and start_time are required")
		return
	}
	start, err := h.parseTime(req.StartTime)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid start_time, use RFC 3339")
		return
	}

	view, err := h.bookings.Create(r.Context(), who.ID, booking.CreateRequest{
		ServiceID:  req.ServiceID,
		VehicleID:  req.VehicleID,
		ProviderID: req.ProviderID,
		StartTime:  start,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentJSON(view))
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := booking.ListFilter{Status: model.Status(strings.TrimSpace(q.Get("status")))}
	var err error
	if filter.StartDate, err = h.parseBound(q.Get("start_date"), false); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	if filter.EndDate, err = h.parseBound(q.Get("end_date"), true); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid end_date")
		return
	}

	views, err := h.bookings.List(r.Context(), who, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]appointmentJSON, 0, len(views))
	for _, v := range views {
		items = append(items, toAppointmentJSON(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": items})
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	view, err := h.bookings.Get(r.Context(), r.PathValue("id"), who)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentJSON(view))
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	patch, err := h.decodePatch(raw)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.bookings.Update(r.Context(), r.PathValue("id"), who, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentJSON(view))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	view, err := h.bookings.Cancel(r.Context(), r.PathValue("id"), who, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentJSON(view))
}

func (h *Handler) availableSlots(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	providerID := strings.TrimSpace(q.Get("provider_id"))
	rawDate := strings.TrimSpace(q.Get("date"))
	if serviceID == "" || rawDate == "" {
		writeMessage(w, http.StatusBadRequest, "service_id and date are required")
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, rawDate, h.loc)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid date, use YYYY-MM-DD")
		return
	}

	slots, err := h.bookings.AvailableSlots(r.Context(), serviceID, date, providerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		ServiceID:  serviceID,
		ProviderID: providerID,
		Date:       rawDate,
		Slots:      toSlotsJSON(slots),
	})
}

// parseTime accepts RFC 3339, or a local timestamp without offset read in the
// booking location.
func (h *Handler) parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", raw, h.loc)
}

// parseBound reads a list filter bound. A bare date as an upper bound means
// the end of that day.
func (h *Handler) parseBound(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseInLocation(time.DateOnly, raw, h.loc); err == nil {
		if upper {
			return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return d, nil
	}
	return h.parseTime(raw)
}

func (h *Handler) decodePatch(raw map[string]json.RawMessage) (booking.Patch, error) {
	var p booking.Patch
	str := func(name string, msg json.RawMessage) (*string, error) {
		var s *string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, fmt.Errorf("%s must be a string", name)
		}
		if s == nil {
			empty := ""
			return &empty, nil
		}
		v := strings.TrimSpace(*s)
		return &v, nil
	}
	for name, msg := range raw {
		s, err := str(name, msg)
		if err != nil {
			return booking.Patch{}, err
		}
		switch name {
		case "status":
			st := model.Status(*s)
			p.Status = &st
		case "notes":
			p.Notes = s
		case "cancellation_reason":
			p.CancellationReason = s
		case "provider_id":
			p.ProviderID = s
		case "customer_id":
			p.CustomerID = s
		case "service_id":
			p.ServiceID = s
		case "vehicle_id":
			p.VehicleID = s
		case "start_time", "end_time":
			t, err := h.parseTime(*s)
			if err != nil {
				return booking.Patch{}, fmt.Errorf("invalid %s, use RFC 3339", name)
			}
			if name == "start_time" {
				p.StartTime = &t
			} else {
				p.EndTime = &t
			}
		default:
			return booking.Patch{}, fmt.Errorf("unknown or immutable field %q", name)
		}
	}
	return p, nil
}
