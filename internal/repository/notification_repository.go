package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct{}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

// CreateBatch inserts one notification row per recipient
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := database.DB.WithContext(ctx).Create(&notifications).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's notifications, unread first, newest first.
// Soft-deleted rows are excluded by GORM's paranoid query scope.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, onlyUnread bool, limit, offset int) ([]models.Notification, error) {
	var notifications []models.Notification
	query := database.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_read ASC, created_at DESC")
	if onlyUnread {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := database.DB.WithContext(ctx).Where("id = ?", id).First(&notification).Error; err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &notification, nil
}

// MarkRead sets isRead and the read timestamp
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) error {
	if err := database.DB.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt}).Error; err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// Delete soft deletes a notification
func (r *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := database.DB.WithContext(ctx).Delete(&models.Notification{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// GetActiveTemplate retrieves an active template by its unique name.
// Returns (nil, nil) when no active template carries the name.
func (r *NotificationRepository) GetActiveTemplate(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	var tmpl models.NotificationTemplate
	err := database.DB.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		First(&tmpl).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

// CreateTemplate creates a notification template
func (r *NotificationRepository) CreateTemplate(ctx context.Context, tmpl *models.NotificationTemplate) error {
	if err := database.DB.WithContext(ctx).Create(tmpl).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}
