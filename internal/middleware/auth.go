package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	UserRoleKey    contextKey = "user_role"
	PermissionsKey contextKey = "permissions"
)

// Auth returns middleware that validates the bearer token and loads the
// caller's identity, role, and effective permission set into the request
// context. Requests without a valid token are rejected; a failed permission
// resolution yields an empty set, so downstream checks deny.
func Auth(authService *services.AuthService, permService *services.PermissionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			userID, role, err := authService.ParseToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				log.Warn().Err(err).Msg("Invalid bearer token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			permissions := permService.ResolveEffective(r.Context(), userID, role)

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UserRoleKey, role)
			ctx = context.WithValue(ctx, PermissionsKey, permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that passes only callers holding one of the
// given roles. Admin always passes.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			if role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// RequirePermission returns middleware that passes only callers whose
// effective set holds the named permission globally. Admin always passes.
func RequirePermission(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if role, ok := GetUserRole(r.Context()); ok && role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			set, ok := GetPermissions(r.Context())
			if !ok || !services.HasPermission(set, name) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

// GetUserRole extracts the authenticated role from context
func GetUserRole(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(UserRoleKey).(models.Role)
	return role, ok
}

// GetPermissions extracts the resolved effective permission set from context
func GetPermissions(ctx context.Context) ([]models.EffectivePermission, bool) {
	set, ok := ctx.Value(PermissionsKey).([]models.EffectivePermission)
	return set, ok
}
