package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageChannel represents the delivery channel of a message
type MessageChannel string

const (
	MessageChannelSMS   MessageChannel = "sms"
	MessageChannelEmail MessageChannel = "email"
)

// String returns the string representation of the channel
func (c MessageChannel) String() string {
	return string(c)
}

// Valid checks if the channel is valid
func (c MessageChannel) Valid() bool {
	return c == MessageChannelSMS || c == MessageChannelEmail
}

// Scan implements the sql.Scanner interface for MessageChannel
func (c *MessageChannel) Scan(value any) error {
	if value == nil {
		*c = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*c = MessageChannel(v)
	case []byte:
		*c = MessageChannel(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageChannel", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageChannel
func (c MessageChannel) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid MessageChannel: %s", c)
	}
	return string(c), nil
}

// MessageStatus represents the dispatch state of a message
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

// Valid checks if the status is valid
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusPending, MessageStatusSent, MessageStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MessageStatus
func (s *MessageStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = MessageStatus(v)
	case []byte:
		*s = MessageStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageStatus
func (s MessageStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid MessageStatus: %s", s)
	}
	return string(s), nil
}

// Message is one rendered outbound message produced by a campaign pass.
// It is created pending inside the pass transaction; the dispatcher
// updates the status afterwards.
type Message struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_messages_uuid" json:"uuid"`
	CampaignID  uint           `gorm:"not null;index:idx_messages_campaign_id" json:"campaign_id"`
	RecipientID uint           `gorm:"not null;index:idx_messages_recipient_id" json:"recipient_id"`
	RunID       *uint          `gorm:"index:idx_messages_run_id" json:"run_id,omitempty"`
	StepIndex   int            `gorm:"not null" json:"step_index"`
	Channel     MessageChannel `gorm:"type:message_channel;not null" json:"channel"`
	Destination string         `gorm:"size:255;not null" json:"destination"`
	Body        string         `gorm:"type:text;not null" json:"body"`
	Status      MessageStatus  `gorm:"type:message_status;not null;default:'pending';index:idx_messages_status" json:"status"`
	FailReason  *string        `gorm:"type:text" json:"fail_reason,omitempty"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_messages_created_at" json:"created_at"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`

	// Relations
	Campaign  *Campaign          `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Recipient *CampaignRecipient `gorm:"foreignKey:RecipientID;references:ID" json:"recipient,omitempty"`
	Run       *CampaignRun       `gorm:"foreignKey:RunID;references:ID" json:"run,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// BeforeCreate is called before creating a new record
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MessageStatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// MessageFilter represents filter criteria for messages
type MessageFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	CampaignID    *uint           `json:"campaign_id,omitempty"`
	RecipientID   *uint           `json:"recipient_id,omitempty"`
	RunID         *uint           `json:"run_id,omitempty"`
	Channel       *MessageChannel `json:"channel,omitempty"`
	Status        *MessageStatus  `json:"status,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
