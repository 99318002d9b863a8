package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/clinova/medbook/internal/middleware"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AppointmentHandler struct {
	appointmentService *services.AppointmentService
}

func NewAppointmentHandler(appointmentService *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

// Create books an appointment
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	// A logged-in caller books for themselves unless the body names a user.
	if req.UserID == nil && !req.IsGuestBooking && req.PatientName == "" {
		if userID, ok := middleware.GetUserID(r.Context()); ok {
			req.UserID = &userID
		}
	}

	appt, err := h.appointmentService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "appointment created",
		"appointment": appt,
	})
}

// canAct reports whether the caller may act on the appointment: its booking
// user, the doctor's owning user, an admin, or a holder of the named global
// permission.
func (h *AppointmentHandler) canAct(r *http.Request, appt *models.Appointment, permission string) bool {
	if role, ok := middleware.GetUserRole(r.Context()); ok && role == models.RoleAdmin {
		return true
	}
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return false
	}
	if appt.UserID != nil && *appt.UserID == callerID {
		return true
	}
	if h.appointmentService.IsDoctorUser(r.Context(), appt.DoctorID, callerID) {
		return true
	}
	set, _ := middleware.GetPermissions(r.Context())
	return services.HasPermission(set, permission)
}

// Get retrieves one appointment
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}
	appt, err := h.appointmentService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.canAct(r, appt, "appointment:read") {
		writeError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListMine retrieves the caller's appointments
func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	appts, err := h.appointmentService.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// UpdateStatus applies a status transition
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}
	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	existing, err := h.appointmentService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.canAct(r, existing, "appointment:manage") {
		writeError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	appt, err := h.appointmentService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Cancel runs the dedicated cancellation path
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}
	var req models.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	existing, err := h.appointmentService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.canAct(r, existing, "appointment:manage") {
		writeError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	canceledBy, _ := middleware.GetUserID(r.Context())
	appt, err := h.appointmentService.Cancel(r.Context(), id, req.Reason, canceledBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}
