package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DossierNote is a medical note attached to a patient's dossier.
type DossierNote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	NoteType  string    `gorm:"type:varchar(50);default:'general'" json:"note_type"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (DossierNote) TableName() string {
	return "dossier_notes"
}

// BeforeCreate hook
func (n *DossierNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// DossierNoteRequest represents a note create/update body
type DossierNoteRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	NoteType string `json:"note_type,omitempty"`
}
