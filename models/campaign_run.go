package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// RunStatus represents the outcome of a single campaign pass
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Valid checks if the status is valid
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RunStatus
func (s *RunStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RunStatus(v)
	case []byte:
		*s = RunStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RunStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RunStatus
func (s RunStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RunStatus: %s", s)
	}
	return string(s), nil
}

// RunTrigger records what started a campaign pass
type RunTrigger string

const (
	RunTriggerScheduled RunTrigger = "scheduled"
	RunTriggerManual    RunTrigger = "manual"
)

// Valid checks if the trigger is valid
func (t RunTrigger) Valid() bool {
	return t == RunTriggerScheduled || t == RunTriggerManual
}

// CampaignRun is the persisted record of one processing pass over a
// campaign's recipients.
type CampaignRun struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_campaign_runs_uuid" json:"uuid"`
	CampaignID uint       `gorm:"not null;index:idx_campaign_runs_campaign_id" json:"campaign_id"`
	Status     RunStatus  `gorm:"type:run_status;not null;default:'running'" json:"status"`
	Trigger    RunTrigger `gorm:"type:varchar(20);not null;default:'scheduled'" json:"trigger"`
	StartedAt  time.Time  `gorm:"not null;index:idx_campaign_runs_started_at" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Pass counters
	Processed int `gorm:"not null;default:0" json:"processed"`
	Sent      int `gorm:"not null;default:0" json:"sent"`
	Converted int `gorm:"not null;default:0" json:"converted"`
	Completed int `gorm:"not null;default:0" json:"completed"`
	Enrolled  int `gorm:"not null;default:0" json:"enrolled"`
	Failed    int `gorm:"not null;default:0" json:"failed"`

	// FailedRecipientIDs keeps the recipients that errored during the
	// pass so reruns and support can target them directly.
	FailedRecipientIDs pq.Int64Array `gorm:"type:bigint[]" json:"failed_recipient_ids,omitempty"`

	Error *string `gorm:"type:text" json:"error,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

func (CampaignRun) TableName() string {
	return "campaign_runs"
}

// BeforeCreate is called before creating a new record
func (r *CampaignRun) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RunStatusRunning
	}
	if r.Trigger == "" {
		r.Trigger = RunTriggerScheduled
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = utils.UTCNow()
	}
	return nil
}

// Finish stamps the run's terminal state
func (r *CampaignRun) Finish(status RunStatus, at time.Time) {
	r.Status = status
	r.FinishedAt = utils.ToPtr(utils.TimeToUTC(at))
}

// CampaignRunFilter represents filter criteria for campaign runs
type CampaignRunFilter struct {
	ID            *uint       `json:"id,omitempty"`
	UUID          *uuid.UUID  `json:"uuid,omitempty"`
	CampaignID    *uint       `json:"campaign_id,omitempty"`
	Status        *RunStatus  `json:"status,omitempty"`
	Trigger       *RunTrigger `json:"trigger,omitempty"`
	StartedAfter  *time.Time  `json:"started_after,omitempty"`
	StartedBefore *time.Time  `json:"started_before,omitempty"`
}
