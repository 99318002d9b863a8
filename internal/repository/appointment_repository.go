package repository

import (
	"context"
	"fmt"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentRepository handles appointment database operations
type AppointmentRepository struct{}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{}
}

// Create creates a new appointment.
//
// The double-booking guard is a read-then-write check in the service layer;
// idx_doctor_slot is a plain composite index, not a uniqueness constraint, so
// two concurrent requests can still both insert. This preserves the store's
// default isolation semantics.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if err := database.DB.WithContext(ctx).Create(appt).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetByID retrieves an appointment by ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var appt models.Appointment
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&appt).Error; err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

// FindAt finds an appointment at (doctor, date, time) whose status is not one
// of the excluded statuses. Returns (nil, nil) when the slot is free.
func (r *AppointmentRepository) FindAt(ctx context.Context, doctorID uuid.UUID, date, timeSlot string, excluding []models.AppointmentStatus) (*models.Appointment, error) {
	var appt models.Appointment
	err := database.DB.WithContext(ctx).
		Where("doctor_id = ? AND date = ? AND time = ?", doctorID, date, timeSlot).
		Where("status NOT IN ?", excluding).
		First(&appt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check slot: %w", err)
	}
	return &appt, nil
}

// BlockingTimes returns the time values of pending/confirmed appointments of
// a doctor on a date.
func (r *AppointmentRepository) BlockingTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	var times []string
	if err := database.DB.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND status IN ?", doctorID, date,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Pluck("time", &times).Error; err != nil {
		return nil, fmt.Errorf("failed to get booked times: %w", err)
	}
	return times, nil
}

// ListBlockingInRange returns pending/confirmed appointments of a doctor with
// dates inside the inclusive [startDate, endDate] range.
func (r *AppointmentRepository) ListBlockingInRange(ctx context.Context, doctorID uuid.UUID, startDate, endDate string) ([]models.Appointment, error) {
	var appts []models.Appointment
	if err := database.DB.WithContext(ctx).
		Where("doctor_id = ? AND date >= ? AND date <= ? AND status IN ?", doctorID, startDate, endDate,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Order("date ASC, time ASC").
		Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("failed to list appointments in range: %w", err)
	}
	return appts, nil
}

// ListByDoctor retrieves appointments of a doctor, newest first
func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]models.Appointment, error) {
	var appts []models.Appointment
	query := database.DB.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("date DESC, time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appts, nil
}

// ListByUser retrieves appointments booked by a registered user
func (r *AppointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Appointment, error) {
	var appts []models.Appointment
	query := database.DB.WithContext(ctx).
		Preload("Doctor").
		Where("user_id = ?", userID).
		Order("date DESC, time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&appts).Error; err != nil {
		return nil, fmt.Errorf("failed to list user appointments: %w", err)
	}
	return appts, nil
}

// Update persists appointment changes
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	if err := database.DB.WithContext(ctx).Save(appt).Error; err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}
