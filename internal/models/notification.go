package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationPriority levels
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// NotificationChannel delivery channels
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
	ChannelInApp NotificationChannel = "in-app"
	ChannelPush  NotificationChannel = "push"
)

// DeliveryStatus of a notification
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Notification is one per-recipient row created by the dispatcher. Only
// IsRead/ReadAt mutate after creation; deletion is paranoid.
type Notification struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	Type              string               `gorm:"type:varchar(50);index" json:"type"`
	Title             string               `gorm:"type:varchar(255);not null" json:"title"`
	Content           string               `gorm:"type:text;not null" json:"content"`
	IsRead            bool                 `gorm:"default:false;index" json:"is_read"`
	ReadAt            *time.Time           `json:"read_at,omitempty"`
	Priority          NotificationPriority `gorm:"type:varchar(10);default:'normal'" json:"priority"`
	Channel           NotificationChannel  `gorm:"type:varchar(10);default:'in-app'" json:"channel"`
	DeliveryStatus    DeliveryStatus       `gorm:"type:varchar(10);default:'pending'" json:"delivery_status"`
	TemplateID        *uuid.UUID           `gorm:"type:uuid" json:"template_id,omitempty"`
	RelatedEntityType string               `gorm:"type:varchar(50)" json:"related_entity_type,omitempty"`
	RelatedEntityID   string               `gorm:"type:varchar(64)" json:"related_entity_id,omitempty"`
	Metadata          datatypes.JSON       `json:"metadata,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate hook
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NotificationTemplate holds {{variable}} placeholder content resolved at
// dispatch time.
type NotificationTemplate struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string               `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Subject         string               `gorm:"type:varchar(255);not null" json:"subject"`
	Content         string               `gorm:"type:text;not null" json:"content"`
	Type            string               `gorm:"type:varchar(50)" json:"type,omitempty"`
	Category        string               `gorm:"type:varchar(50)" json:"category,omitempty"`
	DefaultPriority NotificationPriority `gorm:"type:varchar(10);default:'normal'" json:"default_priority"`
	DefaultChannel  NotificationChannel  `gorm:"type:varchar(10);default:'in-app'" json:"default_channel"`
	IsActive        bool                 `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (NotificationTemplate) TableName() string {
	return "notification_templates"
}

// BeforeCreate hook
func (t *NotificationTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
