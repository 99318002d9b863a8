package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/clinova/medbook/internal/middleware"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/clinova/medbook/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type PermissionHandler struct {
	permService *services.PermissionService
	userRepo    *repository.UserRepository
}

func NewPermissionHandler(permService *services.PermissionService, userRepo *repository.UserRepository) *PermissionHandler {
	return &PermissionHandler{permService: permService, userRepo: userRepo}
}

// Create creates a named capability
func (h *PermissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var perm models.Permission
	if err := json.NewDecoder(r.Body).Decode(&perm); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if perm.Name == "" {
		writeError(w, http.StatusBadRequest, "Permission name is required", nil)
		return
	}
	perm.IsActive = true
	if err := h.permService.CreatePermission(r.Context(), &perm); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, perm)
}

// List retrieves permissions, optionally by category
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	perms, err := h.permService.ListPermissions(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

// Delete removes an unreferenced permission
func (h *PermissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid permission ID", nil)
		return
	}
	if err := h.permService.DeletePermission(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrantToRole grants a permission to a role
func (h *PermissionHandler) GrantToRole(w http.ResponseWriter, r *http.Request) {
	var req models.RoleGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if !models.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "Invalid role", nil)
		return
	}

	grantedBy, _ := middleware.GetUserID(r.Context())
	grant, err := h.permService.GrantToRole(r.Context(), req.Role, req.PermissionName, grantedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// RevokeFromRole revokes a permission from a role
func (h *PermissionHandler) RevokeFromRole(w http.ResponseWriter, r *http.Request) {
	var req models.RoleGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.permService.RevokeFromRole(r.Context(), req.Role, req.PermissionName); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrantToUser records a per-user grant or denial
func (h *PermissionHandler) GrantToUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}
	var req models.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	grantedBy, _ := middleware.GetUserID(r.Context())
	grant, err := h.permService.GrantToUser(r.Context(), userID, &req, grantedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// RevokeFromUser removes a per-user grant or denial
func (h *PermissionHandler) RevokeFromUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}
	grantID, err := uuid.Parse(chi.URLParam(r, "grantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grant ID", nil)
		return
	}
	if err := h.permService.RevokeFromUser(r.Context(), userID, grantID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EffectivePermissions computes the merged permission set of a user
func (h *PermissionHandler) EffectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	set := h.permService.ResolveEffective(r.Context(), user.ID, user.Role)
	writeJSON(w, http.StatusOK, map[string]interface{}{"all": set})
}
