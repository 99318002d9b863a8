package repository

import (
	"context"
	"fmt"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/google/uuid"
)

// DossierRepository handles dossier note database operations
type DossierRepository struct{}

// NewDossierRepository creates a new dossier repository
func NewDossierRepository() *DossierRepository {
	return &DossierRepository{}
}

// Create creates a dossier note
func (r *DossierRepository) Create(ctx context.Context, note *models.DossierNote) error {
	if err := database.DB.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("failed to create dossier note: %w", err)
	}
	return nil
}

// GetByID retrieves a dossier note by ID
func (r *DossierRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DossierNote, error) {
	var note models.DossierNote
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to get dossier note: %w", err)
	}
	return &note, nil
}

// ListByPatient retrieves a patient's dossier notes, newest first
func (r *DossierRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.DossierNote, error) {
	var notes []models.DossierNote
	if err := database.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to list dossier notes: %w", err)
	}
	return notes, nil
}

// Update persists note changes
func (r *DossierRepository) Update(ctx context.Context, note *models.DossierNote) error {
	if err := database.DB.WithContext(ctx).Save(note).Error; err != nil {
		return fmt.Errorf("failed to update dossier note: %w", err)
	}
	return nil
}

// Delete soft deletes a dossier note
func (r *DossierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := database.DB.WithContext(ctx).Delete(&models.DossierNote{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete dossier note: %w", err)
	}
	return nil
}
