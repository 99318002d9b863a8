package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinova/medbook/internal/cache"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/google/uuid"
)

func newPermissionService() *PermissionService {
	return NewPermissionService(repository.NewPermissionRepository(), cache.NewMemoryCache())
}

func TestResolveEffectiveMergesRoleAndUserGrants(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	createTestPermission(t, db, "appointment:read")
	createTestPermission(t, db, "dossier:write")
	user := createTestUser(t, db, "doc@example.com", models.RoleDoctor)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.GrantToRole(ctx, models.RoleDoctor, "appointment:read", admin.ID); err != nil {
		t.Fatalf("grant to role: %v", err)
	}
	if _, err := svc.GrantToUser(ctx, user.ID, &models.GrantRequest{PermissionName: "dossier:write"}, admin.ID); err != nil {
		t.Fatalf("grant to user: %v", err)
	}

	set := svc.ResolveEffective(ctx, user.ID, models.RoleDoctor)
	if len(set) != 2 {
		t.Fatalf("expected 2 effective permissions, got %d: %#v", len(set), set)
	}
	if !HasPermission(set, "appointment:read") || !HasPermission(set, "dossier:write") {
		t.Fatalf("missing expected permissions: %#v", set)
	}

	var sources = map[string]models.PermissionSource{}
	for _, p := range set {
		sources[p.Name] = p.Source
	}
	if sources["appointment:read"] != models.SourceRole {
		t.Fatalf("appointment:read should come from the role, got %s", sources["appointment:read"])
	}
	if sources["dossier:write"] != models.SourceUser {
		t.Fatalf("dossier:write should come from the user grant, got %s", sources["dossier:write"])
	}
}

func TestGlobalUserGrantReplacesRoleEntry(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	createTestPermission(t, db, "appointment:read")
	user := createTestUser(t, db, "doc@example.com", models.RoleDoctor)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.GrantToRole(ctx, models.RoleDoctor, "appointment:read", admin.ID); err != nil {
		t.Fatalf("grant to role: %v", err)
	}
	expires := time.Now().UTC().Add(time.Hour)
	if _, err := svc.GrantToUser(ctx, user.ID, &models.GrantRequest{
		PermissionName: "appointment:read",
		ExpiresAt:      &expires,
	}, admin.ID); err != nil {
		t.Fatalf("grant to user: %v", err)
	}

	set := svc.ResolveEffective(ctx, user.ID, models.RoleDoctor)
	if len(set) != 1 {
		t.Fatalf("user grant must replace the role entry, not duplicate it: %#v", set)
	}
	if set[0].Source != models.SourceUser || set[0].ExpiresAt == nil {
		t.Fatalf("expected the user-sourced entry with expiry, got %#v", set[0])
	}
}

func TestScopedGrantDoesNotCollapseWithRoleEntry(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	createTestPermission(t, db, "dossier:read")
	user := createTestUser(t, db, "resp@example.com", models.RoleResponsable)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.GrantToRole(ctx, models.RoleResponsable, "dossier:read", admin.ID); err != nil {
		t.Fatalf("grant to role: %v", err)
	}
	if _, err := svc.GrantToUser(ctx, user.ID, &models.GrantRequest{
		PermissionName: "dossier:read",
		ResourceType:   "patient",
		ResourceID:     uuid.NewString(),
	}, admin.ID); err != nil {
		t.Fatalf("grant to user: %v", err)
	}

	set := svc.ResolveEffective(ctx, user.ID, models.RoleResponsable)
	if len(set) != 2 {
		t.Fatalf("scoped grant must append alongside the role entry: %#v", set)
	}
}

func TestDenialSuppressesRoleGrant(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	createTestPermission(t, db, "appointment:manage")
	user := createTestUser(t, db, "doc@example.com", models.RoleDoctor)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.GrantToRole(ctx, models.RoleDoctor, "appointment:manage", admin.ID); err != nil {
		t.Fatalf("grant to role: %v", err)
	}
	if _, err := svc.GrantToUser(ctx, user.ID, &models.GrantRequest{
		PermissionName: "appointment:manage",
		IsGranted:      boolPtr(false),
	}, admin.ID); err != nil {
		t.Fatalf("deny to user: %v", err)
	}

	set := svc.ResolveEffective(ctx, user.ID, models.RoleDoctor)
	if HasPermission(set, "appointment:manage") {
		t.Fatalf("denial must remove the role grant: %#v", set)
	}
}

func TestExpiredGrantIsIgnored(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	createTestPermission(t, db, "dossier:write")
	user := createTestUser(t, db, "doc@example.com", models.RoleDoctor)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	expired := time.Now().UTC().Add(-time.Minute)
	if _, err := svc.GrantToUser(ctx, user.ID, &models.GrantRequest{
		PermissionName: "dossier:write",
		ExpiresAt:      &expired,
	}, admin.ID); err != nil {
		t.Fatalf("grant to user: %v", err)
	}

	set := svc.ResolveEffective(ctx, user.ID, models.RoleDoctor)
	if HasPermission(set, "dossier:write") {
		t.Fatalf("expired grant must not appear: %#v", set)
	}
}

func TestGrantInvalidatesCachedSet(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	createTestPermission(t, db, "dossier:read")
	user := createTestUser(t, db, "doc@example.com", models.RoleDoctor)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	// Prime the cache with an empty set.
	if set := svc.ResolveEffective(ctx, user.ID, models.RoleDoctor); len(set) != 0 {
		t.Fatalf("expected empty set, got %#v", set)
	}

	if _, err := svc.GrantToUser(ctx, user.ID, &models.GrantRequest{PermissionName: "dossier:read"}, admin.ID); err != nil {
		t.Fatalf("grant to user: %v", err)
	}

	set := svc.ResolveEffective(ctx, user.ID, models.RoleDoctor)
	if !HasPermission(set, "dossier:read") {
		t.Fatalf("grant must invalidate the cached set: %#v", set)
	}
}

func TestGrantToRoleRejectsDuplicate(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	createTestPermission(t, db, "appointment:read")
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.GrantToRole(ctx, models.RoleDoctor, "appointment:read", admin.ID); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if _, err := svc.GrantToRole(ctx, models.RoleDoctor, "appointment:read", admin.ID); !errors.Is(err, ErrDuplicateRoleGrant) {
		t.Fatalf("expected ErrDuplicateRoleGrant, got %v", err)
	}
}

func TestDeletePermissionRejectsReferenced(t *testing.T) {
	db := setupServiceDB(t)
	svc := newPermissionService()
	ctx := context.Background()

	perm := createTestPermission(t, db, "appointment:read")
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.GrantToRole(ctx, models.RoleDoctor, "appointment:read", admin.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.DeletePermission(ctx, perm.ID); !errors.Is(err, ErrPermissionReferenced) {
		t.Fatalf("expected ErrPermissionReferenced, got %v", err)
	}

	if err := svc.RevokeFromRole(ctx, models.RoleDoctor, "appointment:read"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := svc.DeletePermission(ctx, perm.ID); err != nil {
		t.Fatalf("delete after revoke: %v", err)
	}
}

func TestHasResourcePermission(t *testing.T) {
	patientID := uuid.NewString()
	set := []models.EffectivePermission{
		{Name: "dossier:read", Source: models.SourceUser, ResourceType: "patient", ResourceID: patientID},
	}

	if !HasResourcePermission(set, "dossier:read", "patient", patientID) {
		t.Fatal("expected scoped match")
	}
	if HasResourcePermission(set, "dossier:read", "patient", uuid.NewString()) {
		t.Fatal("must not match another resource")
	}
	if HasPermission(set, "dossier:read") {
		t.Fatal("scoped entry must not satisfy a global check")
	}
}

func TestHasScopedPermission(t *testing.T) {
	doctorID := uuid.NewString()
	set := []models.EffectivePermission{
		{Name: "doctor:manage_schedule", Source: models.SourceRole},
		{Name: "doctor:manage_schedule", Source: models.SourceUser, ResourceType: "doctor", ResourceID: doctorID},
	}

	if !HasScopedPermission(set, "doctor:manage_schedule", "doctor", doctorID) {
		t.Fatal("expected explicit scoped match")
	}
	if HasScopedPermission(set[:1], "doctor:manage_schedule", "doctor", doctorID) {
		t.Fatal("a global grant must not satisfy a scoped check")
	}
	if HasScopedPermission(set, "doctor:manage_schedule", "patient", doctorID) {
		t.Fatal("must not match another resource type")
	}
}
