package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCanceled  AppointmentStatus = "canceled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no-show"
)

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCanceled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transition.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Blocking reports whether an appointment in this status reserves its slot.
func (s AppointmentStatus) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Appointment represents a booking keyed by (doctor, date, time). Identity is
// either a registered user or the guest triple, never both.
type Appointment struct {
	ID       uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID uuid.UUID         `gorm:"type:uuid;not null;index:idx_doctor_slot,priority:1" json:"doctor_id"`
	Date     string            `gorm:"type:varchar(10);not null;index:idx_doctor_slot,priority:2" json:"date"`
	Time     string            `gorm:"type:varchar(5);not null;index:idx_doctor_slot,priority:3" json:"time"`
	Duration int               `gorm:"not null;default:30" json:"duration"`
	Status   AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Reason   string            `gorm:"type:text;not null" json:"reason"`

	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	PatientName    string     `gorm:"type:varchar(200)" json:"patient_name,omitempty"`
	PatientEmail   string     `gorm:"type:varchar(255)" json:"patient_email,omitempty"`
	PatientPhone   string     `gorm:"type:varchar(30)" json:"patient_phone,omitempty"`
	IsGuestBooking bool       `gorm:"default:false" json:"is_guest_booking"`

	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	CancelReason string     `gorm:"type:text" json:"cancel_reason,omitempty"`
	CanceledBy   *uuid.UUID `gorm:"type:uuid" json:"canceled_by,omitempty"`

	Doctor Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate hook
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AppointmentRequest represents a booking request body
type AppointmentRequest struct {
	DoctorID       uuid.UUID  `json:"doctor_id"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Reason         string     `json:"reason"`
	Duration       int        `json:"duration,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	PatientName    string     `json:"patient_name,omitempty"`
	PatientEmail   string     `json:"patient_email,omitempty"`
	PatientPhone   string     `json:"patient_phone,omitempty"`
	IsGuestBooking bool       `json:"is_guest_booking,omitempty"`
}

// StatusUpdateRequest represents a status transition request
type StatusUpdateRequest struct {
	Status AppointmentStatus `json:"status"`
	Notes  string            `json:"notes,omitempty"`
}

// CancelRequest represents a dedicated cancellation request
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}
