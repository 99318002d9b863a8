package services

import (
	"fmt"
	"testing"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceDB opens a unique in-memory database per test name and points
// the package-global connection at it. Repositories in this package all read
// database.DB, so tests must not run in parallel.
func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserPermission{},
		&models.Doctor{},
		&models.DoctorAvailability{},
		&models.DoctorAbsence{},
		&models.Appointment{},
		&models.Notification{},
		&models.NotificationTemplate{},
		&models.DossierNote{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hash", Role: role, IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createTestDoctor(t *testing.T, db *gorm.DB, email string) *models.Doctor {
	t.Helper()
	user := createTestUser(t, db, email, models.RoleDoctor)
	doctor := &models.Doctor{UserID: user.ID, IsActive: true, AcceptingNewPatients: true}
	if err := db.Create(doctor).Error; err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return doctor
}

func createTestPermission(t *testing.T, db *gorm.DB, name string) *models.Permission {
	t.Helper()
	perm := &models.Permission{Name: name, Category: "test", IsActive: true}
	if err := db.Create(perm).Error; err != nil {
		t.Fatalf("create permission: %v", err)
	}
	return perm
}

func boolPtr(b bool) *bool { return &b }
