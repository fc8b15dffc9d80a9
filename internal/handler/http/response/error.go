package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, jwt.ErrAdminRequired):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin privilege required", nil)

	// Calculation domain errors
	case errors.Is(err, calculation.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Attendance calculation not found", nil)
	case errors.Is(err, calculation.ErrRunNotInProgress):
		writeError(w, http.StatusConflict, "CONFLICT", "Attendance calculation is not in progress", nil)
	case errors.Is(err, calculation.ErrQueueUnavailable):
		unavailable(w, "Background queue is unavailable, cannot perform calculation")
	case errors.Is(err, calculation.ErrExternalSourceDown):
		unavailable(w, "External attendance source is not configured")

	case errors.Is(err, context.DeadlineExceeded):
		unavailable(w, "Request timed out")

	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

func unavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, nil)
}
