package services

import (
	"context"

	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/clinova/medbook/internal/validation"
	"github.com/google/uuid"
)

// DossierService manages patient dossier notes.
type DossierService struct {
	dossierRepo *repository.DossierRepository
	userRepo    *repository.UserRepository
}

// NewDossierService creates a new dossier service
func NewDossierService(dossierRepo *repository.DossierRepository, userRepo *repository.UserRepository) *DossierService {
	return &DossierService{dossierRepo: dossierRepo, userRepo: userRepo}
}

// AddNote attaches a note to a patient's dossier.
func (s *DossierService) AddNote(ctx context.Context, patientID, doctorID uuid.UUID, req *models.DossierNoteRequest) (*models.DossierNote, error) {
	v := validation.Violations{}
	validation.Required("title", req.Title, v)
	validation.Required("content", req.Content, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	if _, err := s.userRepo.GetByID(ctx, patientID); err != nil {
		return nil, ErrUserNotFound
	}

	noteType := req.NoteType
	if noteType == "" {
		noteType = "general"
	}
	note := &models.DossierNote{
		PatientID: patientID,
		DoctorID:  doctorID,
		Title:     req.Title,
		Content:   req.Content,
		NoteType:  noteType,
	}
	if err := s.dossierRepo.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Notes lists a patient's dossier notes.
func (s *DossierService) Notes(ctx context.Context, patientID uuid.UUID) ([]models.DossierNote, error) {
	return s.dossierRepo.ListByPatient(ctx, patientID)
}

// UpdateNote edits a note's title, content, or type.
func (s *DossierService) UpdateNote(ctx context.Context, id uuid.UUID, req *models.DossierNoteRequest) (*models.DossierNote, error) {
	note, err := s.dossierRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != "" {
		note.Title = req.Title
	}
	if req.Content != "" {
		note.Content = req.Content
	}
	if req.NoteType != "" {
		note.NoteType = req.NoteType
	}
	if err := s.dossierRepo.Update(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteNote soft deletes a note.
func (s *DossierService) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return s.dossierRepo.Delete(ctx, id)
}
