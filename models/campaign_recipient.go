package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"gorm.io/gorm"
)

// RecipientStatus represents a recipient's progress through a campaign
type RecipientStatus string

const (
	RecipientStatusActive    RecipientStatus = "active"
	RecipientStatusCompleted RecipientStatus = "completed"
	RecipientStatusConverted RecipientStatus = "converted"
	RecipientStatusRemoved   RecipientStatus = "removed"
)

// String returns the string representation of the status
func (s RecipientStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s RecipientStatus) Valid() bool {
	switch s {
	case RecipientStatusActive, RecipientStatusCompleted,
		RecipientStatusConverted, RecipientStatusRemoved:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status ends participation in the campaign
func (s RecipientStatus) Terminal() bool {
	return s == RecipientStatusCompleted ||
		s == RecipientStatusConverted ||
		s == RecipientStatusRemoved
}

// Scan implements the sql.Scanner interface for RecipientStatus
func (s *RecipientStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RecipientStatus(v)
	case []byte:
		*s = RecipientStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RecipientStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RecipientStatus
func (s RecipientStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RecipientStatus: %s", s)
	}
	return string(s), nil
}

// CampaignRecipient tracks one customer's enrollment in one campaign.
// LastStepIndex is -1 until the first step is sent. A (campaign, customer)
// pair has at most one row; re-enrollment after cooldown resets it.
type CampaignRecipient struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CampaignID    uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients_campaign_customer;index:idx_campaign_recipients_campaign_id" json:"campaign_id"`
	CustomerID    uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients_campaign_customer;index:idx_campaign_recipients_customer_id" json:"customer_id"`
	Status        RecipientStatus `gorm:"type:recipient_status;not null;default:'active';index:idx_campaign_recipients_status" json:"status"`
	EnrolledAt    time.Time       `gorm:"not null" json:"enrolled_at"`
	LastStepIndex int             `gorm:"not null;default:-1" json:"last_step_index"`
	LastMessageAt *time.Time      `json:"last_message_at,omitempty"`
	TerminatedAt  *time.Time      `json:"terminated_at,omitempty"`
	CreatedAt     time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

func (CampaignRecipient) TableName() string {
	return "campaign_recipients"
}

// BeforeCreate is called before creating a new record
func (r *CampaignRecipient) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RecipientStatusActive
	}
	if r.EnrolledAt.IsZero() {
		r.EnrolledAt = utils.UTCNow()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (r *CampaignRecipient) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	r.UpdatedAt = &now
	return nil
}

// Terminate moves the recipient into a terminal status and stamps the
// termination time. No-op when already terminal.
func (r *CampaignRecipient) Terminate(status RecipientStatus, at time.Time) {
	if r.Status.Terminal() {
		return
	}
	r.Status = status
	r.TerminatedAt = utils.ToPtr(utils.TimeToUTC(at))
}

// CooldownElapsed reports whether the campaign's cooldown window has
// passed since this recipient was terminated. A recipient with no
// termination time never blocks re-enrollment.
func (r *CampaignRecipient) CooldownElapsed(cooldownDays int, now time.Time) bool {
	if r.TerminatedAt == nil {
		return true
	}
	return !now.Before(utils.AddDays(*r.TerminatedAt, cooldownDays))
}

// CampaignRecipientFilter represents filter criteria for recipients
type CampaignRecipientFilter struct {
	ID             *uint            `json:"id,omitempty"`
	CampaignID     *uint            `json:"campaign_id,omitempty"`
	CustomerID     *uint            `json:"customer_id,omitempty"`
	Status         *RecipientStatus `json:"status,omitempty"`
	EnrolledAfter  *time.Time       `json:"enrolled_after,omitempty"`
	EnrolledBefore *time.Time       `json:"enrolled_before,omitempty"`
}
