// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/models"
)

const RequestIDKey = "X-Request-ID"

// Actor identifies the authenticated staff member a flow acts on behalf
// of. Flows receive it explicitly; nothing is read from ambient state.
type Actor struct {
	StaffID uint             `json:"staff_id"`
	Email   string           `json:"email"`
	Role    models.StaffRole `json:"role"`
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.StaffRoleAdmin
}

// SystemActor is the synthetic actor used by the scheduler for
// campaign passes it starts on its own.
var SystemActor = Actor{StaffID: 0, Email: "scheduler@system", Role: models.StaffRoleAdmin}

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToCampaignDTO converts a campaign model to its response DTO
func ToCampaignDTO(campaign models.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		ID:          campaign.ID,
		UUID:        campaign.UUID.String(),
		Name:        campaign.Name,
		Description: campaign.Description,
		Type:        campaign.Type.String(),
		Status:      campaign.Status.String(),
		Segment:     campaign.Segment,
		Config:      campaign.Config,
		CreatedBy:   campaign.CreatedBy,
		CreatedAt:   campaign.CreatedAt.Format(time.RFC3339),
	}
	if campaign.NextRunAt != nil {
		out.NextRunAt = campaign.NextRunAt.Format(time.RFC3339)
	}
	if campaign.UpdatedAt != nil {
		out.UpdatedAt = campaign.UpdatedAt.Format(time.RFC3339)
	}
	if campaign.ArchivedAt != nil {
		out.ArchivedAt = campaign.ArchivedAt.Format(time.RFC3339)
	}
	return out
}

// ToRecipientDTO converts a recipient model to its response DTO
func ToRecipientDTO(recipient models.CampaignRecipient) dto.RecipientDTO {
	out := dto.RecipientDTO{
		ID:            recipient.ID,
		CampaignID:    recipient.CampaignID,
		CustomerID:    recipient.CustomerID,
		Status:        recipient.Status.String(),
		EnrolledAt:    recipient.EnrolledAt.Format(time.RFC3339),
		LastStepIndex: recipient.LastStepIndex,
	}
	if recipient.LastMessageAt != nil {
		out.LastMessageAt = recipient.LastMessageAt.Format(time.RFC3339)
	}
	if recipient.TerminatedAt != nil {
		out.TerminatedAt = recipient.TerminatedAt.Format(time.RFC3339)
	}
	return out
}

// ToRunDTO converts a run model to its response DTO
func ToRunDTO(run models.CampaignRun) dto.CampaignRunDTO {
	out := dto.CampaignRunDTO{
		ID:         run.ID,
		UUID:       run.UUID.String(),
		CampaignID: run.CampaignID,
		Status:     string(run.Status),
		Trigger:    string(run.Trigger),
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		Processed:  run.Processed,
		Sent:       run.Sent,
		Converted:  run.Converted,
		Completed:  run.Completed,
		Enrolled:   run.Enrolled,
		Failed:     run.Failed,
	}
	if run.FinishedAt != nil {
		out.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	if run.Error != nil {
		out.Error = *run.Error
	}
	for _, id := range run.FailedRecipientIDs {
		out.FailedRecipientIDs = append(out.FailedRecipientIDs, uint(id))
	}
	return out
}

// ToTemplateDTO converts a template model to its response DTO
func ToTemplateDTO(template models.MessageTemplate) dto.MessageTemplateDTO {
	out := dto.MessageTemplateDTO{
		ID:        template.ID,
		UUID:      template.UUID.String(),
		Name:      template.Name,
		Channel:   template.Channel.String(),
		Subject:   template.Subject,
		Body:      template.Body,
		CreatedBy: template.CreatedBy,
		CreatedAt: template.CreatedAt.Format(time.RFC3339),
	}
	if template.UpdatedAt != nil {
		out.UpdatedAt = template.UpdatedAt.Format(time.RFC3339)
	}
	return out
}

// ToStaffDTO converts a staff model to its response DTO
func ToStaffDTO(staff models.Staff) dto.StaffDTO {
	return dto.StaffDTO{
		ID:        staff.ID,
		UUID:      staff.UUID.String(),
		FirstName: staff.FirstName,
		LastName:  staff.LastName,
		Email:     staff.Email,
		Role:      staff.Role.String(),
		IsActive:  staff.IsActive,
		CreatedAt: staff.CreatedAt.Format(time.RFC3339),
	}
}
