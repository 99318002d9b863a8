package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
)

func newAppointmentService() *AppointmentService {
	return NewAppointmentService(
		repository.NewAppointmentRepository(),
		repository.NewDoctorRepository(),
		repository.NewUserRepository(),
		NewNotificationService(repository.NewNotificationRepository()),
	)
}

func TestCreateAppointmentAndConflict(t *testing.T) {
	db := setupServiceDB(t)
	if err := database.SeedDB(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := newAppointmentService()
	ctx := context.Background()

	doctor := createTestDoctor(t, db, "doc@example.com")
	patient := createTestUser(t, db, "patient@example.com", models.RolePatient)
	other := createTestUser(t, db, "other@example.com", models.RolePatient)

	appt, err := svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30",
		Reason: "consultation", UserID: &patient.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Status != models.StatusPending {
		t.Fatalf("new booking must be pending, got %s", appt.Status)
	}
	if appt.Duration != 30 {
		t.Fatalf("default duration must be 30, got %d", appt.Duration)
	}
	if appt.IsGuestBooking {
		t.Fatal("registered booking flagged as guest")
	}

	// The registered patient got an in-app notification.
	var count int64
	db.Model(&models.Notification{}).Where("user_id = ?", patient.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 booking notification, got %d", count)
	}

	// Same slot again conflicts regardless of who asks.
	_, err = svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30",
		Reason: "autre motif", UserID: &other.ID,
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	// Canceling frees the slot for rebooking.
	if _, err := svc.Cancel(ctx, appt.ID, "empêchement", patient.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30",
		Reason: "autre motif", UserID: &other.ID,
	}); err != nil {
		t.Fatalf("rebooking a freed slot: %v", err)
	}
}

func TestCreateAppointmentIdentityRules(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAppointmentService()
	ctx := context.Background()

	doctor := createTestDoctor(t, db, "doc@example.com")
	patient := createTestUser(t, db, "patient@example.com", models.RolePatient)

	base := models.AppointmentRequest{DoctorID: doctor.ID, Date: "2024-06-04", Time: "10:00", Reason: "bilan"}

	// Neither identity.
	req := base
	if _, err := svc.Create(ctx, &req); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("expected ErrIdentityRequired, got %v", err)
	}

	// Both identities.
	req = base
	req.UserID = &patient.ID
	req.PatientName = "Jean Martin"
	if _, err := svc.Create(ctx, &req); !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("expected ErrIdentityConflict, got %v", err)
	}

	// Guest with an incomplete triple.
	req = base
	req.PatientName = "Jean Martin"
	req.PatientEmail = "jean@example.com"
	var verr *ValidationError
	if _, err := svc.Create(ctx, &req); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	} else if verr.Violations["patient_phone"] != "required" {
		t.Fatalf("expected patient_phone violation, got %#v", verr.Violations)
	}

	// Complete guest triple books fine.
	req.PatientPhone = "+33 6 12 34 56 78"
	appt, err := svc.Create(ctx, &req)
	if err != nil {
		t.Fatalf("guest booking: %v", err)
	}
	if !appt.IsGuestBooking || appt.UserID != nil {
		t.Fatalf("expected guest booking, got %#v", appt)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAppointmentService()
	ctx := context.Background()

	doctor := createTestDoctor(t, db, "doc@example.com")
	patient := createTestUser(t, db, "patient@example.com", models.RolePatient)

	var verr *ValidationError
	if _, err := svc.Create(ctx, &models.AppointmentRequest{DoctorID: doctor.ID}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"date", "time", "reason"} {
		if verr.Violations[field] != "required" {
			t.Errorf("expected %s required, got %#v", field, verr.Violations)
		}
	}

	if _, err := svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "03/06/2024", Time: "09:30", Reason: "x", UserID: &patient.ID,
	}); !errors.As(err, &verr) || verr.Violations["date"] != "invalid_date" {
		t.Fatalf("expected invalid_date, got %v", err)
	}

	if _, err := svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "9h30", Reason: "x", UserID: &patient.ID,
	}); !errors.As(err, &verr) || verr.Violations["time"] != "invalid_time" {
		t.Fatalf("expected invalid_time, got %v", err)
	}
}

func TestUpdateStatusTerminalGuard(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAppointmentService()
	ctx := context.Background()

	doctor := createTestDoctor(t, db, "doc@example.com")
	patient := createTestUser(t, db, "patient@example.com", models.RolePatient)

	appt, err := svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30",
		Reason: "consultation", UserID: &patient.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, status := range []models.AppointmentStatus{models.StatusConfirmed, models.StatusCompleted} {
		if appt, err = svc.UpdateStatus(ctx, appt.ID, &models.StatusUpdateRequest{Status: status}); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	// Completed is terminal: any other status is rejected.
	if _, err := svc.UpdateStatus(ctx, appt.ID, &models.StatusUpdateRequest{Status: models.StatusCanceled}); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
	// Re-requesting the same terminal status is an idempotent no-op.
	same, err := svc.UpdateStatus(ctx, appt.ID, &models.StatusUpdateRequest{Status: models.StatusCompleted})
	if err != nil {
		t.Fatalf("idempotent completed: %v", err)
	}
	if same.Status != models.StatusCompleted {
		t.Fatalf("status changed unexpectedly: %s", same.Status)
	}

	var verr *ValidationError
	if _, err := svc.UpdateStatus(ctx, appt.ID, &models.StatusUpdateRequest{Status: "archived"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestCancelAppendsReasonToNotes(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAppointmentService()
	ctx := context.Background()

	doctor := createTestDoctor(t, db, "doc@example.com")
	patient := createTestUser(t, db, "patient@example.com", models.RolePatient)

	appt, err := svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30",
		Reason: "consultation", Notes: "Premier contact", UserID: &patient.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	canceled, err := svc.Cancel(ctx, appt.ID, "délai trop long", patient.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != models.StatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if canceled.Notes != "Premier contact\nCancellation reason: délai trop long" {
		t.Fatalf("reason must append to existing notes, got %q", canceled.Notes)
	}
	if canceled.CancelReason != "délai trop long" || canceled.CanceledBy == nil {
		t.Fatalf("cancellation fields missing: %#v", canceled)
	}

	// Canceling again is idempotent and leaves the notes alone.
	again, err := svc.Cancel(ctx, appt.ID, "autre raison", patient.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if strings.Contains(again.Notes, "autre raison") {
		t.Fatalf("idempotent cancel must not rewrite notes: %q", again.Notes)
	}
}

func TestCancelCompletedRejected(t *testing.T) {
	db := setupServiceDB(t)
	svc := newAppointmentService()
	ctx := context.Background()

	doctor := createTestDoctor(t, db, "doc@example.com")
	patient := createTestUser(t, db, "patient@example.com", models.RolePatient)

	appt, err := svc.Create(ctx, &models.AppointmentRequest{
		DoctorID: doctor.ID, Date: "2024-06-03", Time: "09:30",
		Reason: "consultation", UserID: &patient.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, appt.ID, &models.StatusUpdateRequest{Status: models.StatusCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := svc.Cancel(ctx, appt.ID, "trop tard", patient.ID); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
}
