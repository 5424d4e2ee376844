package models

import (
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageTemplate is reusable message content with placeholder tokens of
// the form {{firstName}}. Templates are soft-deleted so historical
// messages keep a resolvable reference.
type MessageTemplate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_message_templates_uuid" json:"uuid"`
	Name      string         `gorm:"size:255;not null;uniqueIndex:uk_message_templates_name" json:"name"`
	Channel   MessageChannel `gorm:"type:message_channel;not null" json:"channel"`
	Subject   *string        `gorm:"size:255" json:"subject,omitempty"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	CreatedBy uint           `gorm:"not null" json:"created_by"`
	CreatedAt time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	DeletedAt *time.Time     `gorm:"index:idx_message_templates_deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Creator *Staff `gorm:"foreignKey:CreatedBy;references:ID" json:"creator,omitempty"`
}

func (MessageTemplate) TableName() string {
	return "message_templates"
}

// BeforeCreate is called before creating a new record
func (t *MessageTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *MessageTemplate) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// IsDeleted reports whether the template has been soft-deleted
func (t *MessageTemplate) IsDeleted() bool {
	return t.DeletedAt != nil
}

// MessageTemplateFilter represents filter criteria for templates
type MessageTemplateFilter struct {
	ID             *uint           `json:"id,omitempty"`
	UUID           *uuid.UUID      `json:"uuid,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Channel        *MessageChannel `json:"channel,omitempty"`
	IncludeDeleted bool            `json:"include_deleted,omitempty"`
}
