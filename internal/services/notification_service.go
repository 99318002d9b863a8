package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clinova/medbook/internal/metrics"
	"github.com/clinova/medbook/internal/models"
	"github.com/clinova/medbook/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotOwner is returned when a user touches a notification that is not
// addressed to them.
var ErrNotOwner = errors.New("notification does not belong to this user")

// NotificationService creates per-recipient notification rows from named
// templates. Dispatch is best-effort: callers must never fail their primary
// operation because of a dispatch error.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// DispatchOptions carries optional per-dispatch overrides and linkage.
type DispatchOptions struct {
	Priority          models.NotificationPriority
	Channel           models.NotificationChannel
	RelatedEntityType string
	RelatedEntityID   string
}

// Dispatch looks up the active template by name, substitutes variables into
// subject and content, and creates one notification row per recipient. A
// missing template is a logged no-op, not an error.
func (s *NotificationService) Dispatch(ctx context.Context, templateName string, recipients []uuid.UUID, variables map[string]string, opts DispatchOptions) ([]models.Notification, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	tmpl, err := s.notificationRepo.GetActiveTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		log.Warn().Str("template", templateName).Msg("Notification template not found, skipping dispatch")
		return nil, nil
	}

	title := Substitute(tmpl.Subject, variables)
	content := Substitute(tmpl.Content, variables)

	priority := opts.Priority
	if priority == "" {
		priority = tmpl.DefaultPriority
	}
	channel := opts.Channel
	if channel == "" {
		channel = tmpl.DefaultChannel
	}

	notifications := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		templateID := tmpl.ID
		notifications = append(notifications, models.Notification{
			UserID:            userID,
			Type:              tmpl.Type,
			Title:             title,
			Content:           content,
			Priority:          priority,
			Channel:           channel,
			DeliveryStatus:    models.DeliveryPending,
			TemplateID:        &templateID,
			RelatedEntityType: opts.RelatedEntityType,
			RelatedEntityID:   opts.RelatedEntityID,
		})
	}

	if err := s.notificationRepo.CreateBatch(ctx, notifications); err != nil {
		return nil, err
	}
	metrics.NotificationsDispatched.Add(float64(len(notifications)))
	return notifications, nil
}

// DispatchQuietly runs Dispatch and swallows any error, logging it. This is
// the form called after a primary mutation has already succeeded.
func (s *NotificationService) DispatchQuietly(ctx context.Context, templateName string, recipients []uuid.UUID, variables map[string]string, opts DispatchOptions) {
	if _, err := s.Dispatch(ctx, templateName, recipients, variables, opts); err != nil {
		log.Error().Err(err).Str("template", templateName).Msg("Notification dispatch failed")
	}
}

// ListForUser retrieves a user's notifications.
func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool, limit, offset int) ([]models.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, onlyUnread, limit, offset)
}

// MarkRead marks a notification read if it belongs to the user.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrNotOwner
	}
	now := time.Now().UTC()
	if err := s.notificationRepo.MarkRead(ctx, id, now); err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &now
	return n, nil
}

// Delete soft deletes a notification if it belongs to the user.
func (s *NotificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotOwner
	}
	return s.notificationRepo.Delete(ctx, id)
}

// Substitute replaces every {{key}} occurrence in s with its variable value.
// Keys with no matching variable are left verbatim.
func Substitute(s string, variables map[string]string) string {
	for k, v := range variables {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}
	return s
}
