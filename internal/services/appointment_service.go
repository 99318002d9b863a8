package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinova/medbook/internal/metrics"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/clinova/medbook/internal/validation"
	"github.com/google/uuid"
)

// Sentinel errors for booking and transitions.
var (
	ErrSlotTaken        = errors.New("an appointment already exists at this time")
	ErrTerminalState    = errors.New("appointment is in a terminal state")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrIdentityRequired = errors.New("either a user id or guest booking details are required")
	ErrIdentityConflict = errors.New("a booking is either for a registered user or a guest, not both")
)

// Statuses that free their slot for rebooking.
var nonBlockingStatuses = []models.AppointmentStatus{
	models.StatusCanceled,
	models.StatusNoShow,
}

// AppointmentService handles booking and the status lifecycle.
type AppointmentService struct {
	appointmentRepo *repository.AppointmentRepository
	doctorRepo      *repository.DoctorRepository
	userRepo        *repository.UserRepository
	notifications   *NotificationService
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	appointmentRepo *repository.AppointmentRepository,
	doctorRepo *repository.DoctorRepository,
	userRepo *repository.UserRepository,
	notifications *NotificationService,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		userRepo:        userRepo,
		notifications:   notifications,
	}
}

// Create validates a booking request, runs the slot conflict check, and
// inserts a pending appointment. Validation fails fast: the first failing
// rule wins. Notification dispatch afterwards is best-effort.
func (s *AppointmentService) Create(ctx context.Context, req *models.AppointmentRequest) (*models.Appointment, error) {
	v := validation.Violations{}
	if req.DoctorID == uuid.Nil {
		v["doctor_id"] = "required"
	}
	validation.Required("date", req.Date, v)
	validation.Required("time", req.Time, v)
	validation.Required("reason", req.Reason, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	if !validation.IsDate(req.Date) {
		return nil, &ValidationError{Violations: validation.Violations{"date": "invalid_date"}}
	}
	if !validation.IsTime(req.Time) {
		return nil, &ValidationError{Violations: validation.Violations{"time": "invalid_time"}}
	}

	if _, err := s.doctorRepo.GetByID(ctx, req.DoctorID); err != nil {
		return nil, ErrDoctorNotFound
	}

	hasGuestFields := req.PatientName != "" || req.PatientEmail != "" || req.PatientPhone != ""
	if req.UserID != nil {
		if req.IsGuestBooking || hasGuestFields {
			return nil, ErrIdentityConflict
		}
		if _, err := s.userRepo.GetByID(ctx, *req.UserID); err != nil {
			return nil, ErrUserNotFound
		}
	} else if req.IsGuestBooking || hasGuestFields {
		gv := validation.Violations{}
		validation.Required("patient_name", req.PatientName, gv)
		validation.Required("patient_email", req.PatientEmail, gv)
		validation.Required("patient_phone", req.PatientPhone, gv)
		if gv.Empty() {
			validation.Email("patient_email", req.PatientEmail, gv)
			validation.Phone("patient_phone", req.PatientPhone, gv)
		}
		if !gv.Empty() {
			return nil, &ValidationError{Violations: gv}
		}
	} else {
		return nil, ErrIdentityRequired
	}

	existing, err := s.appointmentRepo.FindAt(ctx, req.DoctorID, req.Date, req.Time, nonBlockingStatuses)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.BookingConflicts.Inc()
		return nil, ErrSlotTaken
	}

	duration := req.Duration
	if duration <= 0 {
		duration = 30
	}
	appt := &models.Appointment{
		DoctorID:       req.DoctorID,
		Date:           req.Date,
		Time:           req.Time,
		Duration:       duration,
		Status:         models.StatusPending,
		Reason:         req.Reason,
		Notes:          req.Notes,
		UserID:         req.UserID,
		PatientName:    req.PatientName,
		PatientEmail:   req.PatientEmail,
		PatientPhone:   req.PatientPhone,
		IsGuestBooking: req.UserID == nil,
	}
	if err := s.appointmentRepo.Create(ctx, appt); err != nil {
		return nil, err
	}
	metrics.BookingsCreated.Inc()

	s.notifyParties(ctx, appt, "appointment_created")
	return appt, nil
}

// Get retrieves an appointment
func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return s.appointmentRepo.GetByID(ctx, id)
}

// IsDoctorUser reports whether userID owns the doctor profile.
func (s *AppointmentService) IsDoctorUser(ctx context.Context, doctorID, userID uuid.UUID) bool {
	doctor, err := s.doctorRepo.GetByID(ctx, doctorID)
	return err == nil && doctor.UserID == userID
}

// ListForUser retrieves a registered user's appointments
func (s *AppointmentService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Appointment, error) {
	return s.appointmentRepo.ListByUser(ctx, userID, limit, offset)
}

// ListForDoctor retrieves a doctor's appointments
func (s *AppointmentService) ListForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]models.Appointment, error) {
	return s.appointmentRepo.ListByDoctor(ctx, doctorID, limit, offset)
}

// UpdateStatus applies a status transition. Terminal sources (completed,
// canceled) reject any change of state; re-requesting the same terminal
// status is a no-op success. Non-terminal sources accept any valid target.
// Notes, when given, overwrite.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id uuid.UUID, req *models.StatusUpdateRequest) (*models.Appointment, error) {
	if !models.ValidStatus(req.Status) {
		return nil, &ValidationError{Violations: validation.Violations{"status": "invalid_status"}}
	}

	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		if req.Status == appt.Status {
			return appt, nil
		}
		return nil, ErrTerminalState
	}

	appt.Status = req.Status
	if req.Notes != "" {
		appt.Notes = req.Notes
	}
	if err := s.appointmentRepo.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.notifyParties(ctx, appt, "appointment_status_changed")
	return appt, nil
}

// Cancel is the dedicated cancellation path. Canceling an already-canceled
// appointment succeeds idempotently; a completed one cannot be canceled. The
// cancellation reason is appended to existing notes rather than overwriting.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, reason string, canceledBy uuid.UUID) (*models.Appointment, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.StatusCanceled {
		return appt, nil
	}
	if appt.Status == models.StatusCompleted {
		return nil, ErrTerminalState
	}

	appt.Status = models.StatusCanceled
	appt.CancelReason = reason
	appt.CanceledBy = &canceledBy
	if reason != "" {
		block := fmt.Sprintf("Cancellation reason: %s", reason)
		if appt.Notes != "" {
			appt.Notes = appt.Notes + "\n" + block
		} else {
			appt.Notes = block
		}
	}
	if err := s.appointmentRepo.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.notifyParties(ctx, appt, "appointment_canceled")
	return appt, nil
}

// notifyParties records a notification for the registered patient (guests
// have no account) and for the doctor's owning user.
func (s *AppointmentService) notifyParties(ctx context.Context, appt *models.Appointment, template string) {
	vars := map[string]string{
		"date":   appt.Date,
		"time":   appt.Time,
		"status": string(appt.Status),
		"reason": appt.Reason,
	}
	opts := DispatchOptions{
		RelatedEntityType: "appointment",
		RelatedEntityID:   appt.ID.String(),
	}

	var recipients []uuid.UUID
	if appt.UserID != nil {
		recipients = append(recipients, *appt.UserID)
	}
	if doctor, err := s.doctorRepo.GetByID(ctx, appt.DoctorID); err == nil {
		recipients = append(recipients, doctor.UserID)
	}
	s.notifications.DispatchQuietly(ctx, template, recipients, vars, opts)
}
