package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Doctor represents a practitioner profile owned 1:1 by a user with the
// doctor role.
type Doctor struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	SpecialtyID          uuid.UUID `gorm:"type:uuid;index" json:"specialty_id,omitempty"`
	Bio                  string    `gorm:"type:text" json:"bio,omitempty"`
	Experience           string    `gorm:"type:text" json:"experience,omitempty"`
	YearsOfExperience    int       `json:"years_of_experience"`
	Rating               float64   `json:"rating"`
	ReviewCount          int       `json:"review_count"`
	Languages            string    `gorm:"type:text" json:"-"`
	OfficeAddress        string    `gorm:"type:varchar(500)" json:"office_address,omitempty"`
	OfficeHours          string    `gorm:"type:varchar(255)" json:"office_hours,omitempty"`
	AcceptingNewPatients bool      `gorm:"default:true" json:"accepting_new_patients"`
	IsActive             bool      `gorm:"default:true" json:"is_active"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Doctor) TableName() string {
	return "doctors"
}

// BeforeCreate hook
func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// LanguageList exposes the delimited languages column as a slice.
func (d *Doctor) LanguageList() []string {
	if d.Languages == "" {
		return nil
	}
	parts := strings.Split(d.Languages, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SetLanguages stores a slice into the delimited column.
func (d *Doctor) SetLanguages(langs []string) {
	d.Languages = strings.Join(langs, ",")
}

// Weekday is a lowercase English day-of-week name
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// weekdayNames maps time.Weekday (0=Sunday) onto the stored names.
var weekdayNames = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf resolves the stored day name for a calendar date.
func WeekdayOf(t time.Time) Weekday {
	return weekdayNames[int(t.Weekday())]
}

// ValidWeekday reports whether w is one of the seven day names.
func ValidWeekday(w Weekday) bool {
	for _, d := range weekdayNames {
		if d == w {
			return true
		}
	}
	return false
}

// DoctorAvailability is a recurring weekly working window. At most one row
// per (doctor, day) is meaningful; writes replace rather than duplicate.
type DoctorAvailability struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_doctor_day,priority:1" json:"doctor_id"`
	DayOfWeek Weekday   `gorm:"type:varchar(10);not null;uniqueIndex:idx_doctor_day,priority:2" json:"day_of_week"`
	StartTime string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime   string    `gorm:"type:varchar(5);not null" json:"end_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (DoctorAvailability) TableName() string {
	return "doctor_availabilities"
}

// BeforeCreate hook
func (a *DoctorAvailability) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AbsenceStatus is the approval state of a declared absence
type AbsenceStatus string

const (
	AbsencePending  AbsenceStatus = "pending"
	AbsenceApproved AbsenceStatus = "approved"
	AbsenceRejected AbsenceStatus = "rejected"
)

// DoctorAbsence is a date-range blackout subject to an approval workflow.
// Dates are inclusive YYYY-MM-DD strings.
type DoctorAbsence struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"doctor_id"`
	StartDate  string         `gorm:"type:varchar(10);not null" json:"start_date"`
	EndDate    string         `gorm:"type:varchar(10);not null" json:"end_date"`
	Reason     string         `gorm:"type:text" json:"reason,omitempty"`
	Status     AbsenceStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedBy *uuid.UUID     `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (DoctorAbsence) TableName() string {
	return "doctor_absences"
}

// BeforeCreate hook
func (a *DoctorAbsence) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AbsenceMetadata is the typed shape of the absence metadata column.
type AbsenceMetadata struct {
	StatusHistory    []AbsenceStatusChange `json:"status_history,omitempty"`
	NotifiedPatients int                   `json:"notified_patients,omitempty"`
}

// AbsenceStatusChange is one audit entry in the absence status history.
type AbsenceStatusChange struct {
	From      AbsenceStatus `json:"from"`
	To        AbsenceStatus `json:"to"`
	ChangedBy uuid.UUID     `json:"changed_by"`
	ChangedAt time.Time     `json:"changed_at"`
	Notes     string        `json:"notes,omitempty"`
}

// DoctorRequest represents a request to create or update a doctor profile
type DoctorRequest struct {
	UserID               uuid.UUID `json:"user_id"`
	SpecialtyID          uuid.UUID `json:"specialty_id,omitempty"`
	Bio                  string    `json:"bio,omitempty"`
	Experience           string    `json:"experience,omitempty"`
	YearsOfExperience    int       `json:"years_of_experience,omitempty"`
	Languages            []string  `json:"languages,omitempty"`
	OfficeAddress        string    `json:"office_address,omitempty"`
	OfficeHours          string    `json:"office_hours,omitempty"`
	AcceptingNewPatients bool      `json:"accepting_new_patients"`
}

// AvailabilityRequest represents an availability upsert
type AvailabilityRequest struct {
	DayOfWeek Weekday `json:"day_of_week"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

// AbsenceRequest represents a request to declare an absence
type AbsenceRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

// AbsenceStatusRequest represents an approval or rejection
type AbsenceStatusRequest struct {
	Status AbsenceStatus `json:"status"`
	Notes  string        `json:"notes,omitempty"`
}
