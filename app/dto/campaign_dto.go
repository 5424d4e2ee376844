package dto

import (
	"github.com/clearlens/campaign-engine/models"
)

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	Name        string                `json:"name" validate:"required,min=1,max=255"`
	Description *string               `json:"description,omitempty" validate:"omitempty,max=2000"`
	Type        string                `json:"type" validate:"required,oneof=one_time_blast recurring_reminder drip"`
	Segment     models.SegmentConfig  `json:"segment"`
	Config      models.CampaignConfig `json:"config"`
}

// UpdateCampaignRequest represents the request to update an existing campaign
type UpdateCampaignRequest struct {
	UUID        string                 `json:"-"`
	Name        *string                `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string                `json:"description,omitempty" validate:"omitempty,max=2000"`
	Segment     *models.SegmentConfig  `json:"segment,omitempty"`
	Config      *models.CampaignConfig `json:"config,omitempty"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	ID          uint                  `json:"id"`
	UUID        string                `json:"uuid"`
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Type        string                `json:"type"`
	Status      string                `json:"status"`
	Segment     models.SegmentConfig  `json:"segment"`
	Config      models.CampaignConfig `json:"config"`
	NextRunAt   string                `json:"next_run_at,omitempty"`
	CreatedBy   uint                  `json:"created_by"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at,omitempty"`
	ArchivedAt  string                `json:"archived_at,omitempty"`
}

// ListCampaignsRequest represents the request to list campaigns
type ListCampaignsRequest struct {
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=draft active paused archived"`
	Type   *string `json:"type,omitempty" validate:"omitempty,oneof=one_time_blast recurring_reminder drip"`
	Page   int     `json:"page" validate:"omitempty,min=1"`
	Limit  int     `json:"limit" validate:"omitempty,min=1,max=100"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Items []CampaignDTO `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// CampaignRunDTO represents one processing pass in responses
type CampaignRunDTO struct {
	ID                 uint   `json:"id"`
	UUID               string `json:"uuid"`
	CampaignID         uint   `json:"campaign_id"`
	Status             string `json:"status"`
	Trigger            string `json:"trigger"`
	StartedAt          string `json:"started_at"`
	FinishedAt         string `json:"finished_at,omitempty"`
	Processed          int    `json:"processed"`
	Sent               int    `json:"sent"`
	Converted          int    `json:"converted"`
	Completed          int    `json:"completed"`
	Enrolled           int    `json:"enrolled"`
	Failed             int    `json:"failed"`
	FailedRecipientIDs []uint `json:"failed_recipient_ids,omitempty"`
	Error              string `json:"error,omitempty"`
}

// TriggerCampaignRunResponse represents the response to a manual run trigger
type TriggerCampaignRunResponse struct {
	Message string         `json:"message"`
	Run     CampaignRunDTO `json:"run"`
}

// ListCampaignRunsRequest represents the request to list a campaign's runs
type ListCampaignRunsRequest struct {
	UUID  string `json:"-"`
	Page  int    `json:"page" validate:"omitempty,min=1"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

// ListCampaignRunsResponse represents the response to list a campaign's runs
type ListCampaignRunsResponse struct {
	Items []CampaignRunDTO `json:"items"`
}
