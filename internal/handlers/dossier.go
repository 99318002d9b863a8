package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/clinova/medbook/internal/middleware"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DossierHandler struct {
	dossierService *services.DossierService
}

func NewDossierHandler(dossierService *services.DossierService) *DossierHandler {
	return &DossierHandler{dossierService: dossierService}
}

// AddNote attaches a note to a patient's dossier
func (h *DossierHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}
	var req models.DossierNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	authorID, _ := middleware.GetUserID(r.Context())
	note, err := h.dossierService.AddNote(r.Context(), patientID, authorID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ListNotes lists a patient's dossier notes. Callers may read their own
// dossier; anyone else needs dossier:read (admins always pass).
func (h *DossierHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	role, _ := middleware.GetUserRole(r.Context())
	callerID, _ := middleware.GetUserID(r.Context())
	if callerID != patientID && role != models.RoleAdmin {
		set, _ := middleware.GetPermissions(r.Context())
		if !services.HasPermission(set, "dossier:read") {
			writeError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
	}

	notes, err := h.dossierService.Notes(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// UpdateNote edits a dossier note
func (h *DossierHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID, err := uuid.Parse(chi.URLParam(r, "noteID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note ID", nil)
		return
	}
	var req models.DossierNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	note, err := h.dossierService.UpdateNote(r.Context(), noteID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote removes a dossier note
func (h *DossierHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, err := uuid.Parse(chi.URLParam(r, "noteID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note ID", nil)
		return
	}
	if err := h.dossierService.DeleteNote(r.Context(), noteID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
