package models

import (
	"encoding/json"
	"time"
)

// AuditLog records staff-initiated actions against campaigns, templates,
// and recipients.
type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	StaffID      *uint           `gorm:"index:idx_audit_staff_id" json:"staff_id,omitempty"`
	Staff        *Staff          `gorm:"foreignKey:StaffID;references:ID" json:"staff,omitempty"`
	Action       string          `gorm:"size:100;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccessful   = "login_successful"
	AuditActionLoginFailed       = "login_failed"
	AuditActionCampaignCreated   = "campaign_created"
	AuditActionCampaignUpdated   = "campaign_updated"
	AuditActionCampaignDeleted   = "campaign_deleted"
	AuditActionCampaignActivated = "campaign_activated"
	AuditActionCampaignPaused    = "campaign_paused"
	AuditActionCampaignArchived  = "campaign_archived"
	AuditActionCampaignRun       = "campaign_run_triggered"
	AuditActionRecipientEnrolled = "recipient_enrolled"
	AuditActionRecipientRemoved  = "recipient_removed"
	AuditActionTemplateCreated   = "template_created"
	AuditActionTemplateUpdated   = "template_updated"
	AuditActionTemplateDeleted   = "template_deleted"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	StaffID       *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
