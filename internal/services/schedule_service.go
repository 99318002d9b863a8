package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/clinova/medbook/internal/validation"
	"github.com/google/uuid"
)

// Sentinel errors for scheduling.
var (
	ErrAbsenceOverlap    = errors.New("an absence already covers part of this date range")
	ErrAbsenceSameStatus = errors.New("absence already has the requested status")
	ErrInvalidWindow     = errors.New("start time must be before end time")
	ErrInvalidDateRange  = errors.New("start date must not be after end date")
)

const slotMinutes = 30

// ScheduleService computes doctor availability and manages the absence
// workflow.
type ScheduleService struct {
	scheduleRepo    *repository.ScheduleRepository
	appointmentRepo *repository.AppointmentRepository
	doctorRepo      *repository.DoctorRepository
	notifications   *NotificationService
}

// NewScheduleService creates a new schedule service
func NewScheduleService(
	scheduleRepo *repository.ScheduleRepository,
	appointmentRepo *repository.AppointmentRepository,
	doctorRepo *repository.DoctorRepository,
	notifications *NotificationService,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		notifications:   notifications,
	}
}

// AvailableSlots returns the free HH:MM slots of a doctor on a date, in
// ascending order, stepping in fixed 30-minute increments from the weekly
// window. An absence covering the date, or no window for that weekday, yields
// an empty list.
func (s *ScheduleService) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	avail, err := s.scheduleRepo.AvailabilityFor(ctx, doctorID, models.WeekdayOf(day))
	if err != nil {
		return nil, err
	}
	if avail == nil {
		return []string{}, nil
	}

	absence, err := s.scheduleRepo.AbsenceCovering(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if absence != nil {
		return []string{}, nil
	}

	booked, err := s.appointmentRepo.BlockingTimes(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	slots := []string{}
	for _, slot := range StepSlots(avail.StartTime, avail.EndTime) {
		if _, ok := taken[slot]; ok {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// StepSlots generates HH:MM values from start (inclusive) up to end
// (exclusive) in 30-minute steps. Minute overflow rolls the hour forward.
func StepSlots(start, end string) []string {
	var h, m, eh, em int
	if _, err := fmt.Sscanf(start, "%d:%d", &h, &m); err != nil {
		return nil
	}
	if _, err := fmt.Sscanf(end, "%d:%d", &eh, &em); err != nil {
		return nil
	}

	var slots []string
	for h < eh || (h == eh && m < em) {
		slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		m += slotMinutes
		if m > 59 {
			m -= 60
			h++
		}
	}
	return slots
}

// SetAvailability validates and upserts the weekly window for a day. A later
// write replaces an earlier one for the same day.
func (s *ScheduleService) SetAvailability(ctx context.Context, doctorID uuid.UUID, req *models.AvailabilityRequest) (*models.DoctorAvailability, error) {
	v := validation.Violations{}
	if !models.ValidWeekday(req.DayOfWeek) {
		v["day_of_week"] = "invalid_day"
	}
	validation.Time("start_time", req.StartTime, v)
	validation.Time("end_time", req.EndTime, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	if req.StartTime >= req.EndTime {
		return nil, ErrInvalidWindow
	}

	avail := &models.DoctorAvailability{
		DoctorID:  doctorID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.scheduleRepo.UpsertAvailability(ctx, avail); err != nil {
		return nil, err
	}
	return avail, nil
}

// ClearAvailability removes the window for one day, closing it to booking.
func (s *ScheduleService) ClearAvailability(ctx context.Context, doctorID uuid.UUID, day models.Weekday) error {
	if !models.ValidWeekday(day) {
		return &ValidationError{Violations: validation.Violations{"day_of_week": "invalid_day"}}
	}
	return s.scheduleRepo.DeleteAvailability(ctx, doctorID, day)
}

// WeeklySchedule returns all availability rows of a doctor
func (s *ScheduleService) WeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]models.DoctorAvailability, error) {
	return s.scheduleRepo.ListAvailability(ctx, doctorID)
}

// DeclareAbsence creates a pending absence after rejecting overlapping
// ranges. The overlap test covers both endpoint-contained and fully-spanning
// cases.
func (s *ScheduleService) DeclareAbsence(ctx context.Context, doctorID uuid.UUID, req *models.AbsenceRequest) (*models.DoctorAbsence, error) {
	v := validation.Violations{}
	validation.Date("start_date", req.StartDate, v)
	validation.Date("end_date", req.EndDate, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	if req.StartDate > req.EndDate {
		return nil, ErrInvalidDateRange
	}

	overlapping, err := s.scheduleRepo.OverlappingAbsences(ctx, doctorID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, ErrAbsenceOverlap
	}

	absence := &models.DoctorAbsence{
		DoctorID:  doctorID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
		Status:    models.AbsencePending,
	}
	if err := s.scheduleRepo.CreateAbsence(ctx, absence); err != nil {
		return nil, err
	}
	return absence, nil
}

// ListAbsences returns all absences of a doctor
func (s *ScheduleService) ListAbsences(ctx context.Context, doctorID uuid.UUID) ([]models.DoctorAbsence, error) {
	return s.scheduleRepo.ListAbsences(ctx, doctorID)
}

// ReviewAbsence approves or rejects an absence. On approval, every patient
// with a pending or confirmed appointment inside the range is notified and
// the count is recorded in the absence metadata; the doctor is notified
// either way. Notification fan-out is best-effort and runs after the status
// mutation has been committed.
func (s *ScheduleService) ReviewAbsence(ctx context.Context, absenceID uuid.UUID, req *models.AbsenceStatusRequest, reviewedBy uuid.UUID) (*models.DoctorAbsence, error) {
	if req.Status != models.AbsenceApproved && req.Status != models.AbsenceRejected {
		return nil, &ValidationError{Violations: validation.Violations{"status": "must_be_approved_or_rejected"}}
	}

	absence, err := s.scheduleRepo.GetAbsence(ctx, absenceID)
	if err != nil {
		return nil, err
	}
	if absence.Status == req.Status {
		return nil, ErrAbsenceSameStatus
	}

	var meta models.AbsenceMetadata
	if len(absence.Metadata) > 0 {
		_ = json.Unmarshal(absence.Metadata, &meta)
	}

	now := time.Now().UTC()
	meta.StatusHistory = append(meta.StatusHistory, models.AbsenceStatusChange{
		From:      absence.Status,
		To:        req.Status,
		ChangedBy: reviewedBy,
		ChangedAt: now,
		Notes:     req.Notes,
	})

	var affected []models.Appointment
	if req.Status == models.AbsenceApproved {
		affected, err = s.appointmentRepo.ListBlockingInRange(ctx, absence.DoctorID, absence.StartDate, absence.EndDate)
		if err != nil {
			return nil, err
		}
		patients := appointmentPatients(affected)
		meta.NotifiedPatients = len(patients)
	}

	absence.Status = req.Status
	absence.ReviewedBy = &reviewedBy
	absence.ReviewedAt = &now
	if raw, err := json.Marshal(meta); err == nil {
		absence.Metadata = raw
	}

	if err := s.scheduleRepo.UpdateAbsence(ctx, absence); err != nil {
		return nil, err
	}

	vars := map[string]string{
		"start_date": absence.StartDate,
		"end_date":   absence.EndDate,
		"status":     string(absence.Status),
	}
	if req.Status == models.AbsenceApproved {
		s.notifications.DispatchQuietly(ctx, "absence_patient_impact", appointmentPatients(affected), vars, DispatchOptions{
			Priority:          models.PriorityHigh,
			RelatedEntityType: "doctor_absence",
			RelatedEntityID:   absence.ID.String(),
		})
	}
	if doctor, derr := s.doctorRepo.GetByID(ctx, absence.DoctorID); derr == nil {
		s.notifications.DispatchQuietly(ctx, "absence_reviewed", []uuid.UUID{doctor.UserID}, vars, DispatchOptions{
			RelatedEntityType: "doctor_absence",
			RelatedEntityID:   absence.ID.String(),
		})
	}

	return absence, nil
}

// appointmentPatients returns the distinct registered user IDs of the given
// appointments. Guest bookings carry no account to notify.
func appointmentPatients(appts []models.Appointment) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, a := range appts {
		if a.UserID == nil {
			continue
		}
		if _, ok := seen[*a.UserID]; ok {
			continue
		}
		seen[*a.UserID] = struct{}{}
		ids = append(ids, *a.UserID)
	}
	return ids
}
