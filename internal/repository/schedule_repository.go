package repository

import (
	"context"
	"fmt"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleRepository handles availability and absence database operations
type ScheduleRepository struct{}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{}
}

// UpsertAvailability replaces the availability window for a (doctor, day).
func (r *ScheduleRepository) UpsertAvailability(ctx context.Context, avail *models.DoctorAvailability) error {
	tx := database.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("doctor_id = ? AND day_of_week = ?", avail.DoctorID, avail.DayOfWeek).
		Delete(&models.DoctorAvailability{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to replace availability: %w", err)
	}

	if err := tx.Create(avail).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create availability: %w", err)
	}

	return tx.Commit().Error
}

// AvailabilityFor retrieves the window for a (doctor, day). Returns
// (nil, nil) when the doctor does not work that day.
func (r *ScheduleRepository) AvailabilityFor(ctx context.Context, doctorID uuid.UUID, day models.Weekday) (*models.DoctorAvailability, error) {
	var avail models.DoctorAvailability
	err := database.DB.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", doctorID, day).
		First(&avail).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	return &avail, nil
}

// ListAvailability retrieves the full weekly schedule of a doctor
func (r *ScheduleRepository) ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]models.DoctorAvailability, error) {
	var avails []models.DoctorAvailability
	if err := database.DB.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Find(&avails).Error; err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	return avails, nil
}

// DeleteAvailability removes the window for a (doctor, day)
func (r *ScheduleRepository) DeleteAvailability(ctx context.Context, doctorID uuid.UUID, day models.Weekday) error {
	if err := database.DB.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", doctorID, day).
		Delete(&models.DoctorAvailability{}).Error; err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	return nil
}

// CreateAbsence creates an absence declaration
func (r *ScheduleRepository) CreateAbsence(ctx context.Context, absence *models.DoctorAbsence) error {
	if err := database.DB.WithContext(ctx).Create(absence).Error; err != nil {
		return fmt.Errorf("failed to create absence: %w", err)
	}
	return nil
}

// GetAbsence retrieves an absence by ID
func (r *ScheduleRepository) GetAbsence(ctx context.Context, id uuid.UUID) (*models.DoctorAbsence, error) {
	var absence models.DoctorAbsence
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&absence).Error; err != nil {
		return nil, fmt.Errorf("failed to get absence: %w", err)
	}
	return &absence, nil
}

// ListAbsences retrieves all absences of a doctor
func (r *ScheduleRepository) ListAbsences(ctx context.Context, doctorID uuid.UUID) ([]models.DoctorAbsence, error) {
	var absences []models.DoctorAbsence
	if err := database.DB.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("start_date ASC").
		Find(&absences).Error; err != nil {
		return nil, fmt.Errorf("failed to list absences: %w", err)
	}
	return absences, nil
}

// OverlappingAbsences finds non-rejected absences of a doctor whose inclusive
// date range intersects [startDate, endDate]. Dates are YYYY-MM-DD strings,
// which order lexicographically.
func (r *ScheduleRepository) OverlappingAbsences(ctx context.Context, doctorID uuid.UUID, startDate, endDate string) ([]models.DoctorAbsence, error) {
	var absences []models.DoctorAbsence
	if err := database.DB.WithContext(ctx).
		Where("doctor_id = ? AND status <> ?", doctorID, models.AbsenceRejected).
		Where("start_date <= ? AND end_date >= ?", endDate, startDate).
		Find(&absences).Error; err != nil {
		return nil, fmt.Errorf("failed to check absence overlap: %w", err)
	}
	return absences, nil
}

// AbsenceCovering finds a non-rejected absence of a doctor containing date.
// Returns (nil, nil) when none covers it.
func (r *ScheduleRepository) AbsenceCovering(ctx context.Context, doctorID uuid.UUID, date string) (*models.DoctorAbsence, error) {
	var absence models.DoctorAbsence
	err := database.DB.WithContext(ctx).
		Where("doctor_id = ? AND status <> ?", doctorID, models.AbsenceRejected).
		Where("start_date <= ? AND end_date >= ?", date, date).
		First(&absence).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check absence cover: %w", err)
	}
	return &absence, nil
}

// UpdateAbsence persists absence changes in a single transaction.
func (r *ScheduleRepository) UpdateAbsence(ctx context.Context, absence *models.DoctorAbsence) error {
	if err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Save(absence).Error
	}); err != nil {
		return fmt.Errorf("failed to update absence: %w", err)
	}
	return nil
}
