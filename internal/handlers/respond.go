package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinova/medbook/internal/services"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type errorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string, details interface{}) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// writeServiceError maps service-layer errors onto the HTTP taxonomy:
// validation 400, not-found 404, conflicts 409, terminal-state 400,
// everything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation failed", verr.Violations)
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, services.ErrDoctorNotFound),
		errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, services.ErrSlotTaken),
		errors.Is(err, services.ErrAbsenceOverlap),
		errors.Is(err, services.ErrDuplicateRoleGrant),
		errors.Is(err, services.ErrPermissionReferenced),
		errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrTerminalState),
		errors.Is(err, services.ErrAbsenceSameStatus),
		errors.Is(err, services.ErrInvalidWindow),
		errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrIdentityRequired),
		errors.Is(err, services.ErrIdentityConflict),
		errors.Is(err, services.ErrNotADoctor):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, services.ErrNotOwner):
		writeError(w, http.StatusForbidden, "forbidden", nil)
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
