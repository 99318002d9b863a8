package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission represents a named capability
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Category    string    `gorm:"type:varchar(50);index" json:"category,omitempty"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Permission) TableName() string {
	return "permissions"
}

// BeforeCreate hook
func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RolePermission represents a standing grant to every user of a role
type RolePermission struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Role         Role      `gorm:"type:varchar(20);not null;uniqueIndex:idx_role_perm,priority:1" json:"role"`
	PermissionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_role_perm,priority:2" json:"permission_id"`
	GrantedBy    uuid.UUID `gorm:"type:uuid" json:"granted_by"`
	GrantedAt    time.Time `json:"granted_at"`

	Permission Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

// TableName overrides the table name
func (RolePermission) TableName() string {
	return "role_permissions"
}

// BeforeCreate hook
func (rp *RolePermission) BeforeCreate(tx *gorm.DB) error {
	if rp.ID == uuid.Nil {
		rp.ID = uuid.New()
	}
	if rp.GrantedAt.IsZero() {
		rp.GrantedAt = time.Now().UTC()
	}
	return nil
}

// UserPermission represents a per-user grant or explicit denial,
// optionally scoped to a resource and optionally time-limited.
type UserPermission struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PermissionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"permission_id"`
	IsGranted    bool       `gorm:"not null;default:true" json:"is_granted"`
	ResourceType string     `gorm:"type:varchar(64)" json:"resource_type,omitempty"`
	ResourceID   string     `gorm:"type:varchar(64)" json:"resource_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	GrantedBy    uuid.UUID  `gorm:"type:uuid" json:"granted_by"`
	Reason       string     `gorm:"type:text" json:"reason,omitempty"`

	Permission Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (UserPermission) TableName() string {
	return "user_permissions"
}

// BeforeCreate hook
func (up *UserPermission) BeforeCreate(tx *gorm.DB) error {
	if up.ID == uuid.Nil {
		up.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the grant is inert at the given instant.
func (up *UserPermission) Expired(now time.Time) bool {
	return up.ExpiresAt != nil && now.After(*up.ExpiresAt)
}

// PermissionSource identifies where an effective permission came from
type PermissionSource string

const (
	SourceRole PermissionSource = "role"
	SourceUser PermissionSource = "user"
)

// EffectivePermission is the derived, merged view of a capability a user
// actually holds. It is never persisted.
type EffectivePermission struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	Source       PermissionSource `json:"source"`
	ResourceType string           `json:"resource_type,omitempty"`
	ResourceID   string           `json:"resource_id,omitempty"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
}

// Scoped reports whether the permission is limited to a resource.
func (e EffectivePermission) Scoped() bool {
	return e.ResourceType != "" || e.ResourceID != ""
}

// GrantRequest represents a request to grant or deny a permission to a user
type GrantRequest struct {
	PermissionName string     `json:"permission"`
	IsGranted      *bool      `json:"is_granted,omitempty"`
	ResourceType   string     `json:"resource_type,omitempty"`
	ResourceID     string     `json:"resource_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// RoleGrantRequest represents a request to grant a permission to a role
type RoleGrantRequest struct {
	Role           Role   `json:"role"`
	PermissionName string `json:"permission"`
}
