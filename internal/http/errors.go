package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/taxi-dispatch/internal/matcher"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// statusFor maps coordinator errors onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, matcher.ErrMissingFields):
		return http.StatusBadRequest, "MissingFields"
	case errors.Is(err, matcher.ErrGeocodingFailed):
		return http.StatusBadRequest, "GeocodingFailed"
	case errors.Is(err, matcher.ErrNoVehicleAvailable):
		return http.StatusBadRequest, "NoVehicleAvailable"
	case errors.Is(err, matcher.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, matcher.ErrActiveBooking):
		return http.StatusConflict, "ActiveBooking"
	case errors.Is(err, matcher.ErrInvalidTransition):
		return http.StatusConflict, "InvalidTransition"
	case errors.Is(err, matcher.ErrCancellationNotAllowed):
		return http.StatusConflict, "CancellationNotAllowed"
	case errors.Is(err, matcher.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "StorageUnavailable"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

func (s *Server) writeMatcherError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", routeTemplate(r), "request_id", requestIDFromContext(r.Context()), "error", err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeError(w, status, code, msg)
}
