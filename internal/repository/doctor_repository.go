package repository

import (
	"context"
	"fmt"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/google/uuid"
)

// DoctorRepository handles doctor profile database operations
type DoctorRepository struct{}

// NewDoctorRepository creates a new doctor repository
func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{}
}

// Create creates a new doctor profile
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if err := database.DB.WithContext(ctx).Create(doctor).Error; err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

// GetByID retrieves a doctor by ID
func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := database.DB.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&doctor).Error; err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

// GetByUserID retrieves the doctor profile owned by a user
func (r *DoctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := database.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&doctor).Error; err != nil {
		return nil, fmt.Errorf("failed to get doctor by user: %w", err)
	}
	return &doctor, nil
}

// List retrieves active doctors
func (r *DoctorRepository) List(ctx context.Context, limit, offset int) ([]models.Doctor, error) {
	var doctors []models.Doctor
	query := database.DB.WithContext(ctx).
		Preload("User").
		Where("is_active = ?", true).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&doctors).Error; err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// Update updates a doctor profile
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	if err := database.DB.WithContext(ctx).Save(doctor).Error; err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	return nil
}

// Delete soft deletes a doctor profile
func (r *DoctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := database.DB.WithContext(ctx).Delete(&models.Doctor{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	return nil
}
