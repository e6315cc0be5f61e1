package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/schedule"
)

type setAvailabilityRequest struct {
	DayOfWeek   *int   `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable *bool  `json:"is_available"`
}

func (h *Handler) listAvailability(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	providerID := r.PathValue("id")
	list, err := h.schedule.List(r.Context(), providerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]availabilityJSON, 0, len(list))
	for _, a := range list {
		items = append(items, toAvailabilityJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"provider_id": providerID, "availability": items})
}

func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.DayOfWeek == nil || req.StartTime == "" || req.EndTime == "" {
		writeMessage(w, http.StatusBadRequest, "day_of_week, start_time and end_time are required")
		return
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	saved, err := h.schedule.Set(r.Context(), who, r.PathValue("id"), schedule.SetRequest{
		DayOfWeek:   *req.DayOfWeek,
		StartMinute: start,
		EndMinute:   end,
		IsAvailable: available,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityJSON(saved))
}

func (h *Handler) deleteAvailability(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "day must be an integer between 0 and 6")
		return
	}
	if err := h.schedule.Delete(r.Context(), who, r.PathValue("id"), day); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
