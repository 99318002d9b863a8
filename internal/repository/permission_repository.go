package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/google/uuid"
)

// PermissionRepository handles permission and grant database operations
type PermissionRepository struct{}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository() *PermissionRepository {
	return &PermissionRepository{}
}

// Create creates a new permission
func (r *PermissionRepository) Create(ctx context.Context, perm *models.Permission) error {
	if err := database.DB.WithContext(ctx).Create(perm).Error; err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

// GetByID retrieves a permission by ID
func (r *PermissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Permission, error) {
	var perm models.Permission
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&perm).Error; err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &perm, nil
}

// GetByName retrieves an active permission by its unique name
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*models.Permission, error) {
	var perm models.Permission
	if err := database.DB.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		First(&perm).Error; err != nil {
		return nil, fmt.Errorf("failed to get permission by name: %w", err)
	}
	return &perm, nil
}

// List retrieves permissions, optionally by category
func (r *PermissionRepository) List(ctx context.Context, category string) ([]models.Permission, error) {
	var perms []models.Permission
	query := database.DB.WithContext(ctx).Order("category ASC, name ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// GrantCount returns the number of role and user grants referencing a permission.
func (r *PermissionRepository) GrantCount(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	var roleCount, userCount int64
	if err := database.DB.WithContext(ctx).Model(&models.RolePermission{}).
		Where("permission_id = ?", permissionID).Count(&roleCount).Error; err != nil {
		return 0, fmt.Errorf("failed to count role grants: %w", err)
	}
	if err := database.DB.WithContext(ctx).Model(&models.UserPermission{}).
		Where("permission_id = ?", permissionID).Count(&userCount).Error; err != nil {
		return 0, fmt.Errorf("failed to count user grants: %w", err)
	}
	return roleCount + userCount, nil
}

// Delete removes a permission
func (r *PermissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := database.DB.WithContext(ctx).Delete(&models.Permission{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return nil
}

// CreateRoleGrant grants a permission to a role
func (r *PermissionRepository) CreateRoleGrant(ctx context.Context, grant *models.RolePermission) error {
	if err := database.DB.WithContext(ctx).Create(grant).Error; err != nil {
		return fmt.Errorf("failed to create role grant: %w", err)
	}
	return nil
}

// RoleGrantExists reports whether a (role, permission) grant already exists.
func (r *PermissionRepository) RoleGrantExists(ctx context.Context, role models.Role, permissionID uuid.UUID) (bool, error) {
	var count int64
	if err := database.DB.WithContext(ctx).Model(&models.RolePermission{}).
		Where("role = ? AND permission_id = ?", role, permissionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check role grant: %w", err)
	}
	return count > 0, nil
}

// DeleteRoleGrant revokes a permission from a role
func (r *PermissionRepository) DeleteRoleGrant(ctx context.Context, role models.Role, permissionID uuid.UUID) error {
	if err := database.DB.WithContext(ctx).
		Where("role = ? AND permission_id = ?", role, permissionID).
		Delete(&models.RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to delete role grant: %w", err)
	}
	return nil
}

// RolePermissions loads all grants for a role joined to active permissions.
func (r *PermissionRepository) RolePermissions(ctx context.Context, role models.Role) ([]models.RolePermission, error) {
	var grants []models.RolePermission
	if err := database.DB.WithContext(ctx).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id AND permissions.is_active = ?", true).
		Where("role_permissions.role = ?", role).
		Preload("Permission").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	return grants, nil
}

// CreateUserGrant records a per-user grant or denial
func (r *PermissionRepository) CreateUserGrant(ctx context.Context, grant *models.UserPermission) error {
	if err := database.DB.WithContext(ctx).Create(grant).Error; err != nil {
		return fmt.Errorf("failed to create user grant: %w", err)
	}
	return nil
}

// DeleteUserGrant removes a per-user grant or denial
func (r *PermissionRepository) DeleteUserGrant(ctx context.Context, id uuid.UUID) error {
	if err := database.DB.WithContext(ctx).Delete(&models.UserPermission{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete user grant: %w", err)
	}
	return nil
}

// UserGrants loads non-expired grants (isGranted=true) for a user joined to
// active permissions.
func (r *PermissionRepository) UserGrants(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.UserPermission, error) {
	return r.userPermissions(ctx, userID, true, now)
}

// UserDenials loads non-expired explicit denials (isGranted=false) for a user.
func (r *PermissionRepository) UserDenials(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.UserPermission, error) {
	return r.userPermissions(ctx, userID, false, now)
}

func (r *PermissionRepository) userPermissions(ctx context.Context, userID uuid.UUID, granted bool, now time.Time) ([]models.UserPermission, error) {
	var grants []models.UserPermission
	if err := database.DB.WithContext(ctx).
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id AND permissions.is_active = ?", true).
		Where("user_permissions.user_id = ? AND user_permissions.is_granted = ?", userID, granted).
		Where("user_permissions.expires_at IS NULL OR user_permissions.expires_at > ?", now).
		Preload("Permission").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	return grants, nil
}
