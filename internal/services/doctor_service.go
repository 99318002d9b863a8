package services

import (
	"context"
	"errors"

	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/google/uuid"
)

// ErrNotADoctor is returned when a doctor profile is created for a user
// whose role is not doctor.
var ErrNotADoctor = errors.New("user does not carry the doctor role")

// DoctorService manages doctor profiles.
type DoctorService struct {
	doctorRepo *repository.DoctorRepository
	userRepo   *repository.UserRepository
}

// NewDoctorService creates a new doctor service
func NewDoctorService(doctorRepo *repository.DoctorRepository, userRepo *repository.UserRepository) *DoctorService {
	return &DoctorService{doctorRepo: doctorRepo, userRepo: userRepo}
}

// Create creates a doctor profile. The referenced user must already carry
// the doctor role.
func (s *DoctorService) Create(ctx context.Context, req *models.DoctorRequest) (*models.Doctor, error) {
	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.Role != models.RoleDoctor {
		return nil, ErrNotADoctor
	}

	doctor := &models.Doctor{
		UserID:               req.UserID,
		SpecialtyID:          req.SpecialtyID,
		Bio:                  req.Bio,
		Experience:           req.Experience,
		YearsOfExperience:    req.YearsOfExperience,
		OfficeAddress:        req.OfficeAddress,
		OfficeHours:          req.OfficeHours,
		AcceptingNewPatients: req.AcceptingNewPatients,
		IsActive:             true,
	}
	doctor.SetLanguages(req.Languages)
	if err := s.doctorRepo.Create(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

// Get retrieves a doctor profile
func (s *DoctorService) Get(ctx context.Context, id uuid.UUID) (*models.Doctor, error) {
	return s.doctorRepo.GetByID(ctx, id)
}

// GetByUser retrieves the profile owned by a user
func (s *DoctorService) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Doctor, error) {
	return s.doctorRepo.GetByUserID(ctx, userID)
}

// List retrieves active doctors
func (s *DoctorService) List(ctx context.Context, limit, offset int) ([]models.Doctor, error) {
	return s.doctorRepo.List(ctx, limit, offset)
}

// Update applies profile changes
func (s *DoctorService) Update(ctx context.Context, id uuid.UUID, req *models.DoctorRequest) (*models.Doctor, error) {
	doctor, err := s.doctorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doctor.Bio = req.Bio
	doctor.Experience = req.Experience
	doctor.YearsOfExperience = req.YearsOfExperience
	doctor.OfficeAddress = req.OfficeAddress
	doctor.OfficeHours = req.OfficeHours
	doctor.AcceptingNewPatients = req.AcceptingNewPatients
	if req.SpecialtyID != uuid.Nil {
		doctor.SpecialtyID = req.SpecialtyID
	}
	if req.Languages != nil {
		doctor.SetLanguages(req.Languages)
	}
	if err := s.doctorRepo.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

// Deactivate soft deletes a doctor profile
func (s *DoctorService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.doctorRepo.Delete(ctx, id)
}
