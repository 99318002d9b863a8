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

type DoctorHandler struct {
	doctorService   *services.DoctorService
	scheduleService *services.ScheduleService
}

func NewDoctorHandler(doctorService *services.DoctorService, scheduleService *services.ScheduleService) *DoctorHandler {
	return &DoctorHandler{doctorService: doctorService, scheduleService: scheduleService}
}

func doctorID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "doctorID"))
}

// Create creates a doctor profile
func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.DoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	doctor, err := h.doctorService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doctor)
}

// List retrieves active doctors
func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	doctors, err := h.doctorService.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

// Get retrieves one doctor profile
func (h *DoctorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	doctor, err := h.doctorService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// Update applies profile changes
func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	var req models.DoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	doctor, err := h.doctorService.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// Deactivate hides the doctor from listings and booking
func (h *DoctorHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	if err := h.doctorService.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Doctor deactivated"})
}

// SetAvailability upserts the weekly window for one day
func (h *DoctorHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	if !h.canManageSchedule(r, id) {
		writeError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var req models.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	avail, err := h.scheduleService.SetAvailability(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// canManageSchedule reports whether the caller may change this doctor's
// schedule: the doctor's own user, an admin, a responsable, or a holder of
// doctor:manage_schedule scoped to the doctor. The doctor role's global
// grant is checked at the route; it does not extend to other doctors'
// schedules.
func (h *DoctorHandler) canManageSchedule(r *http.Request, doctorID uuid.UUID) bool {
	role, _ := middleware.GetUserRole(r.Context())
	if role == models.RoleAdmin || role == models.RoleResponsable {
		return true
	}
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return false
	}
	if doctor, err := h.doctorService.Get(r.Context(), doctorID); err == nil && doctor.UserID == callerID {
		return true
	}
	set, _ := middleware.GetPermissions(r.Context())
	return services.HasScopedPermission(set, "doctor:manage_schedule", "doctor", doctorID.String())
}

// ClearAvailability removes the window for one day
func (h *DoctorHandler) ClearAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	if !h.canManageSchedule(r, id) {
		writeError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	day := models.Weekday(chi.URLParam(r, "day"))
	if err := h.scheduleService.ClearAvailability(r.Context(), id, day); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAvailability retrieves the weekly schedule
func (h *DoctorHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	avails, err := h.scheduleService.WeeklySchedule(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avails)
}

// AvailableSlots computes the free 30-minute slots for a date
func (h *DoctorHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	date := chi.URLParam(r, "date")

	slots, err := h.scheduleService.AvailableSlots(r.Context(), id, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// DeclareAbsence declares a pending absence
func (h *DoctorHandler) DeclareAbsence(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	if !h.canManageSchedule(r, id) {
		writeError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var req models.AbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	absence, err := h.scheduleService.DeclareAbsence(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"absence": absence})
}

// ListAbsences retrieves all absences of a doctor
func (h *DoctorHandler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	id, err := doctorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}
	absences, err := h.scheduleService.ListAbsences(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, absences)
}

// ReviewAbsence approves or rejects an absence. The caller must be admin or
// hold the doctor:approve_absences permission.
func (h *DoctorHandler) ReviewAbsence(w http.ResponseWriter, r *http.Request) {
	absenceID, err := uuid.Parse(chi.URLParam(r, "absenceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid absence ID", nil)
		return
	}
	var req models.AbsenceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	role, _ := middleware.GetUserRole(r.Context())
	if role != models.RoleAdmin {
		set, _ := middleware.GetPermissions(r.Context())
		if !services.HasPermission(set, "doctor:approve_absences") {
			writeError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
	}

	reviewedBy, _ := middleware.GetUserID(r.Context())
	absence, err := h.scheduleService.ReviewAbsence(r.Context(), absenceID, &req, reviewedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, absence)
}
