package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinova/medbook/internal/cache"
	"github.com/clinova/medbook/internal/metrics"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Sentinel errors for permission administration.
var (
	ErrPermissionReferenced = errors.New("permission is referenced by existing grants")
	ErrDuplicateRoleGrant   = errors.New("role already holds this permission")
)

const permissionCacheTTL = 5 * time.Minute

// permKey identifies a grant or denial target. Resource fields are empty for
// global entries; structural equality avoids delimiter collisions that a
// concatenated string key would allow.
type permKey struct {
	PermissionID uuid.UUID
	ResourceType string
	ResourceID   string
}

func globalKey(permissionID uuid.UUID) permKey {
	return permKey{PermissionID: permissionID}
}

// PermissionService resolves and administers permissions.
type PermissionService struct {
	permRepo *repository.PermissionRepository
	cache    cache.Cache
}

// NewPermissionService creates a new permission service
func NewPermissionService(permRepo *repository.PermissionRepository, c cache.Cache) *PermissionService {
	return &PermissionService{permRepo: permRepo, cache: c}
}

// ResolveEffective computes the effective permission set for a user: role
// grants plus user grants, minus explicit denials, with user-level global
// grants replacing role grants of the same name. Any lookup failure yields an
// empty set so that permission checks fail closed.
func (s *PermissionService) ResolveEffective(ctx context.Context, userID uuid.UUID, role models.Role) []models.EffectivePermission {
	if cached, ok := s.fromCache(ctx, userID); ok {
		metrics.PermissionCacheHits.Inc()
		return cached
	}

	effective, err := s.resolve(ctx, userID, role)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Permission resolution failed, returning empty set")
		return []models.EffectivePermission{}
	}

	s.toCache(ctx, userID, effective)
	return effective
}

func (s *PermissionService) resolve(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.EffectivePermission, error) {
	now := time.Now().UTC()

	roleGrants, err := s.permRepo.RolePermissions(ctx, role)
	if err != nil {
		return nil, err
	}
	userGrants, err := s.permRepo.UserGrants(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	denials, err := s.permRepo.UserDenials(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	denied := make(map[permKey]struct{}, len(denials))
	for _, d := range denials {
		denied[permKey{PermissionID: d.PermissionID, ResourceType: d.ResourceType, ResourceID: d.ResourceID}] = struct{}{}
	}

	// Role grants are inherently global; a global denial suppresses them.
	effective := make([]models.EffectivePermission, 0, len(roleGrants)+len(userGrants))
	byName := make(map[string]int)
	for _, rg := range roleGrants {
		if _, ok := denied[globalKey(rg.PermissionID)]; ok {
			continue
		}
		byName[rg.Permission.Name] = len(effective)
		effective = append(effective, models.EffectivePermission{
			ID:          rg.Permission.ID,
			Name:        rg.Permission.Name,
			Description: rg.Permission.Description,
			Category:    rg.Permission.Category,
			Source:      models.SourceRole,
		})
	}

	for _, ug := range userGrants {
		key := permKey{PermissionID: ug.PermissionID, ResourceType: ug.ResourceType, ResourceID: ug.ResourceID}
		if _, ok := denied[key]; ok {
			continue
		}
		entry := models.EffectivePermission{
			ID:           ug.Permission.ID,
			Name:         ug.Permission.Name,
			Description:  ug.Permission.Description,
			Category:     ug.Permission.Category,
			Source:       models.SourceUser,
			ResourceType: ug.ResourceType,
			ResourceID:   ug.ResourceID,
			ExpiresAt:    ug.ExpiresAt,
		}
		if entry.Scoped() {
			// Scoped grants never collapse with role entries.
			effective = append(effective, entry)
			continue
		}
		if idx, ok := byName[entry.Name]; ok && !effective[idx].Scoped() {
			effective[idx] = entry
			continue
		}
		byName[entry.Name] = len(effective)
		effective = append(effective, entry)
	}

	return effective, nil
}

// HasPermission reports whether the effective set contains a global grant of
// the named permission.
func HasPermission(set []models.EffectivePermission, name string) bool {
	for _, p := range set {
		if p.Name == name && !p.Scoped() {
			return true
		}
	}
	return false
}

// HasResourcePermission reports whether the effective set grants the named
// permission globally or scoped to the given resource.
func HasResourcePermission(set []models.EffectivePermission, name, resourceType, resourceID string) bool {
	for _, p := range set {
		if p.Name != name {
			continue
		}
		if !p.Scoped() {
			return true
		}
		if p.ResourceType == resourceType && (p.ResourceID == "" || p.ResourceID == resourceID) {
			return true
		}
	}
	return false
}

// HasScopedPermission reports whether the set carries the named permission
// explicitly scoped to the given resource. Unlike HasResourcePermission, a
// global grant does not qualify.
func HasScopedPermission(set []models.EffectivePermission, name, resourceType, resourceID string) bool {
	for _, p := range set {
		if p.Name != name || !p.Scoped() {
			continue
		}
		if p.ResourceType == resourceType && (p.ResourceID == "" || p.ResourceID == resourceID) {
			return true
		}
	}
	return false
}

// CreatePermission creates a named capability
func (s *PermissionService) CreatePermission(ctx context.Context, perm *models.Permission) error {
	return s.permRepo.Create(ctx, perm)
}

// ListPermissions lists capabilities, optionally by category
func (s *PermissionService) ListPermissions(ctx context.Context, category string) ([]models.Permission, error) {
	return s.permRepo.List(ctx, category)
}

// DeletePermission removes a permission unless grants still reference it.
func (s *PermissionService) DeletePermission(ctx context.Context, id uuid.UUID) error {
	count, err := s.permRepo.GrantCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrPermissionReferenced
	}
	return s.permRepo.Delete(ctx, id)
}

// GrantToRole grants a named permission to a role. Duplicate (role,
// permission) pairs are rejected.
func (s *PermissionService) GrantToRole(ctx context.Context, role models.Role, permissionName string, grantedBy uuid.UUID) (*models.RolePermission, error) {
	perm, err := s.permRepo.GetByName(ctx, permissionName)
	if err != nil {
		return nil, fmt.Errorf("unknown permission %q: %w", permissionName, err)
	}
	exists, err := s.permRepo.RoleGrantExists(ctx, role, perm.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRoleGrant
	}
	grant := &models.RolePermission{Role: role, PermissionID: perm.ID, GrantedBy: grantedBy}
	if err := s.permRepo.CreateRoleGrant(ctx, grant); err != nil {
		return nil, err
	}
	s.invalidateAll(ctx)
	return grant, nil
}

// RevokeFromRole removes a role grant
func (s *PermissionService) RevokeFromRole(ctx context.Context, role models.Role, permissionName string) error {
	perm, err := s.permRepo.GetByName(ctx, permissionName)
	if err != nil {
		return fmt.Errorf("unknown permission %q: %w", permissionName, err)
	}
	if err := s.permRepo.DeleteRoleGrant(ctx, role, perm.ID); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// GrantToUser records a per-user grant or denial per the request.
func (s *PermissionService) GrantToUser(ctx context.Context, userID uuid.UUID, req *models.GrantRequest, grantedBy uuid.UUID) (*models.UserPermission, error) {
	perm, err := s.permRepo.GetByName(ctx, req.PermissionName)
	if err != nil {
		return nil, fmt.Errorf("unknown permission %q: %w", req.PermissionName, err)
	}
	isGranted := true
	if req.IsGranted != nil {
		isGranted = *req.IsGranted
	}
	grant := &models.UserPermission{
		UserID:       userID,
		PermissionID: perm.ID,
		IsGranted:    isGranted,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		ExpiresAt:    req.ExpiresAt,
		GrantedBy:    grantedBy,
		Reason:       req.Reason,
	}
	if err := s.permRepo.CreateUserGrant(ctx, grant); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return grant, nil
}

// RevokeFromUser removes a per-user grant or denial
func (s *PermissionService) RevokeFromUser(ctx context.Context, userID, grantID uuid.UUID) error {
	if err := s.permRepo.DeleteUserGrant(ctx, grantID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *PermissionService) fromCache(ctx context.Context, userID uuid.UUID) ([]models.EffectivePermission, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, cache.PermissionKey(userID.String()))
	if err != nil {
		return nil, false
	}
	var set []models.EffectivePermission
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, false
	}
	return set, true
}

func (s *PermissionService) toCache(ctx context.Context, userID uuid.UUID, set []models.EffectivePermission) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.PermissionKey(userID.String()), data, permissionCacheTTL); err != nil {
		log.Debug().Err(err).Msg("Permission cache write failed")
	}
}

func (s *PermissionService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.PermissionKey(userID.String())); err != nil {
		log.Debug().Err(err).Msg("Permission cache invalidation failed")
	}
}

func (s *PermissionService) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx, "perms:*"); err != nil {
		log.Debug().Err(err).Msg("Permission cache clear failed")
	}
}
