package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// statusFor maps lending and store errors to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidItem):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrItemInUse):
		return http.StatusConflict
	case errors.Is(err, model.ErrConflictRetryExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// serviceError writes err as a JSON error. Unexpected errors are logged and
// replaced by a generic message.
func serviceError(w http.ResponseWriter, err error, what string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("failed to "+what, "error", err)
		jsonError(w, status, "failed to "+what)
		return
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	jsonError(w, status, err.Error())
}
