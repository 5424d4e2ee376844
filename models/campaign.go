package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignType represents the kind of campaign
type CampaignType string

const (
	CampaignTypeOneTimeBlast      CampaignType = "one_time_blast"
	CampaignTypeRecurringReminder CampaignType = "recurring_reminder"
	CampaignTypeDrip              CampaignType = "drip"
)

// String returns the string representation of the type
func (t CampaignType) String() string {
	return string(t)
}

// Valid checks if the type is valid
func (t CampaignType) Valid() bool {
	switch t {
	case CampaignTypeOneTimeBlast, CampaignTypeRecurringReminder, CampaignTypeDrip:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignType
func (t *CampaignType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = CampaignType(v)
	case []byte:
		*t = CampaignType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignType
func (t CampaignType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid CampaignType: %s", t)
	}
	return string(t), nil
}

// CampaignStatus represents the lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "draft"
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusPaused   CampaignStatus = "paused"
	CampaignStatusArchived CampaignStatus = "archived"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusArchived:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// EnrollmentMode controls how customers become recipients of a campaign
type EnrollmentMode string

const (
	EnrollmentModeManual EnrollmentMode = "manual"
	EnrollmentModeAuto   EnrollmentMode = "auto"
)

// Valid checks if the enrollment mode is valid
func (m EnrollmentMode) Valid() bool {
	return m == EnrollmentModeManual || m == EnrollmentModeAuto
}

// DripStep describes one message in a campaign's sequence. DelayDays is
// measured from the recipient's enrollment time, not from the previous step.
type DripStep struct {
	StepIndex  int            `json:"step_index"`
	DelayDays  int            `json:"delay_days"`
	Channel    MessageChannel `json:"channel"`
	TemplateID *uint          `json:"template_id,omitempty"`
	Body       *string        `json:"body,omitempty"`
}

// CampaignConfig represents the JSON behavior configuration for a campaign
type CampaignConfig struct {
	Steps            []DripStep     `json:"steps"`
	StopOnConversion bool           `json:"stop_on_conversion"`
	CooldownDays     int            `json:"cooldown_days"`
	EnrollmentMode   EnrollmentMode `json:"enrollment_mode"`
}

// Value implements the driver.Valuer interface for CampaignConfig
func (c CampaignConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for CampaignConfig
func (c *CampaignConfig) Scan(value any) error {
	if value == nil {
		*c = CampaignConfig{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CampaignConfig", value)
	}

	return json.Unmarshal(bytes, c)
}

// Validate checks structural soundness of the configuration. Steps must
// carry strictly increasing indexes starting at 0 with non-decreasing
// delays, and each step needs exactly one content source.
func (c *CampaignConfig) Validate() error {
	if !c.EnrollmentMode.Valid() {
		return fmt.Errorf("invalid enrollment mode: %s", c.EnrollmentMode)
	}
	if c.CooldownDays < 0 {
		return fmt.Errorf("cooldown days must not be negative")
	}
	if len(c.Steps) > utils.MaxDripSteps {
		return fmt.Errorf("too many steps: %d (max %d)", len(c.Steps), utils.MaxDripSteps)
	}

	prevDelay := -1
	for i, step := range c.Steps {
		if step.StepIndex != i {
			return fmt.Errorf("step %d has index %d, expected %d", i, step.StepIndex, i)
		}
		if step.DelayDays < 0 {
			return fmt.Errorf("step %d has negative delay", i)
		}
		if step.DelayDays < prevDelay {
			return fmt.Errorf("step %d delay %d precedes step %d delay %d", i, step.DelayDays, i-1, prevDelay)
		}
		if !step.Channel.Valid() {
			return fmt.Errorf("step %d has invalid channel: %s", i, step.Channel)
		}
		hasTemplate := step.TemplateID != nil
		hasBody := step.Body != nil && *step.Body != ""
		if hasTemplate == hasBody {
			return fmt.Errorf("step %d must set exactly one of template_id or body", i)
		}
		prevDelay = step.DelayDays
	}

	return nil
}

// MaxStepIndex returns the highest step index, or -1 when no steps exist.
func (c *CampaignConfig) MaxStepIndex() int {
	return len(c.Steps) - 1
}

// Campaign represents a marketing campaign in the database
type Campaign struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description *string        `gorm:"type:text" json:"description,omitempty"`
	Type        CampaignType   `gorm:"type:campaign_type;not null;index:idx_campaigns_type" json:"type"`
	Status      CampaignStatus `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`
	Segment     SegmentConfig  `gorm:"type:jsonb;not null" json:"segment"`
	Config      CampaignConfig `gorm:"type:jsonb;not null" json:"config"`
	NextRunAt   *time.Time     `gorm:"index:idx_campaigns_next_run_at" json:"next_run_at,omitempty"`
	CreatedBy   uint           `gorm:"not null;index:idx_campaigns_created_by" json:"created_by"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
	ArchivedAt  *time.Time     `json:"archived_at,omitempty"`

	// Relations
	Creator *Staff `gorm:"foreignKey:CreatedBy;references:ID" json:"creator,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsEditable checks if segment and config changes are still allowed
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft
}

// IsDeletable checks if the campaign can be deleted
func (c *Campaign) IsDeletable() bool {
	return c.Status == CampaignStatusDraft
}

// CanTransitionTo checks if the campaign can transition to the given status.
// Archived is terminal.
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusArchived
	case CampaignStatusActive:
		return newStatus == CampaignStatusPaused ||
			newStatus == CampaignStatusArchived
	case CampaignStatusPaused:
		return newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusArchived
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	Name          *string         `json:"name,omitempty"`
	Type          *CampaignType   `json:"type,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	CreatedBy     *uint           `json:"created_by,omitempty"`
	DueBefore     *time.Time      `json:"due_before,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusActive:
		return "Active"
	case CampaignStatusPaused:
		return "Paused"
	case CampaignStatusArchived:
		return "Archived"
	default:
		return "Unknown"
	}
}
