package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/autobook/libs/auth"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps booking error kinds onto HTTP statuses. Anything that is not
// a booking error is an internal failure and its text is never shown.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var be *booking.Error
	if !errors.As(err, &be) {
		logger.Error("unhandled error", "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	switch be.Kind {
	case booking.KindValidation:
		writeMessage(w, http.StatusBadRequest, be.Msg)
	case booking.KindNotFound:
		writeMessage(w, http.StatusNotFound, be.Msg)
	case booking.KindConflict:
		writeMessage(w, http.StatusConflict, be.Msg)
	case booking.KindUnauthorized:
		writeMessage(w, http.StatusForbidden, "not allowed to perform this action")
	case booking.KindPersistence:
		if be.Retryable {
			logger.Warn("retryable persistence failure", "err", err)
			w.Header().Set("Retry-After", "1")
			writeMessage(w, http.StatusServiceUnavailable, "service busy, please retry")
			return
		}
		logger.Error("persistence failure", "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	default:
		logger.Error("unknown error kind", "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// actor resolves the caller set by the auth middleware, writing 401 when
// there is none.
func actor(w http.ResponseWriter, r *http.Request) (booking.Actor, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return booking.Actor{}, false
	}
	return booking.Actor{ID: id.UserID, Role: model.Role(id.Role)}, true
}
