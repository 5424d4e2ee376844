// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	"github.com/clearlens/campaign-engine/utils"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign lifecycle business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, actor Actor, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	UpdateCampaign(ctx context.Context, actor Actor, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	DeleteCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) error
	GetCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, actor Actor, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error)
	ActivateCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	PauseCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	ArchiveCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	templateRepo repository.MessageTemplateRepository
	auditRepo    repository.AuditLogRepository
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	templateRepo repository.MessageTemplateRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		templateRepo: templateRepo,
		auditRepo:    auditRepo,
		db:           db,
	}
}

// CreateCampaign handles the complete campaign creation process.
// Campaigns always start in draft.
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, actor Actor, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaignType := models.CampaignType(req.Type)
	if err := s.validateDefinition(ctx, req.Name, campaignType, &req.Segment, &req.Config); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	campaign := &models.Campaign{
		Name:        req.Name,
		Description: req.Description,
		Type:        campaignType,
		Status:      models.CampaignStatusDraft,
		Segment:     req.Segment,
		Config:      req.Config,
		CreatedBy:   actor.StaffID,
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Save(txCtx, campaign)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign creation failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	msg := fmt.Sprintf("Campaign created successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	resp := ToCampaignDTO(*campaign)
	return &resp, nil
}

// UpdateCampaign handles the campaign update process. Segment and config
// changes are restricted to drafts; name and description may change any
// time before archival.
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, actor Actor, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	if req.Name == nil && req.Description == nil && req.Segment == nil && req.Config == nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_VALIDATION_FAILED", "Campaign update validation failed", ErrCampaignUpdateRequired)
	}

	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.UUID)
	if err != nil {
		return nil, err
	}

	if campaign.Status == models.CampaignStatusArchived {
		return nil, NewBusinessError("CAMPAIGN_ARCHIVED", "Archived campaigns cannot be updated", ErrCampaignArchived)
	}

	if (req.Segment != nil || req.Config != nil) && !campaign.IsEditable() {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_NOT_ALLOWED", "Segment and config can only change in draft", ErrCampaignNotEditable)
	}

	if req.Name != nil {
		campaign.Name = *req.Name
	}
	if req.Description != nil {
		campaign.Description = req.Description
	}
	if req.Segment != nil {
		campaign.Segment = *req.Segment
	}
	if req.Config != nil {
		campaign.Config = *req.Config
	}

	if err := s.validateDefinition(ctx, campaign.Name, campaign.Type, &campaign.Segment, &campaign.Config); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Update(txCtx, *campaign)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign update failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	msg := fmt.Sprintf("Campaign updated successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignUpdated, msg, true, nil, metadata)

	resp := ToCampaignDTO(*campaign)
	return &resp, nil
}

// DeleteCampaign removes a draft campaign permanently
func (s *CampaignFlowImpl) DeleteCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) error {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, campaignUUID)
	if err != nil {
		return err
	}

	if !campaign.IsDeletable() {
		return NewBusinessError("CAMPAIGN_DELETE_NOT_ALLOWED", "Only draft campaigns can be deleted", ErrCampaignNotDeletable)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Delete(txCtx, campaign.ID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign deletion failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignDeleted, errMsg, false, &errMsg, metadata)

		return NewBusinessError("CAMPAIGN_DELETE_FAILED", "Campaign deletion failed", err)
	}

	msg := fmt.Sprintf("Campaign deleted: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignDeleted, msg, true, nil, metadata)

	return nil
}

// GetCampaign retrieves one campaign by UUID
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, campaignUUID)
	if err != nil {
		return nil, err
	}

	resp := ToCampaignDTO(*campaign)
	return &resp, nil
}

// ListCampaigns lists campaigns with optional status and type filtering
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, actor Actor, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error) {
	filter := models.CampaignFilter{}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}
	if req.Type != nil {
		campaignType := models.CampaignType(*req.Type)
		filter.Type = &campaignType
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = 50
	}

	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "created_at DESC", limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}

	resp := &dto.ListCampaignsResponse{
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for _, campaign := range campaigns {
		resp.Items = append(resp.Items, ToCampaignDTO(*campaign))
	}
	return resp, nil
}

// ActivateCampaign moves a draft or paused campaign to active and
// schedules its next pass immediately.
func (s *CampaignFlowImpl) ActivateCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	return s.changeStatus(ctx, actor, campaignUUID, models.CampaignStatusActive, models.AuditActionCampaignActivated, metadata)
}

// PauseCampaign suspends an active campaign. Enrollments and recipient
// state survive; passes simply stop until reactivation.
func (s *CampaignFlowImpl) PauseCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	return s.changeStatus(ctx, actor, campaignUUID, models.CampaignStatusPaused, models.AuditActionCampaignPaused, metadata)
}

// ArchiveCampaign moves a campaign to its terminal archived status
func (s *CampaignFlowImpl) ArchiveCampaign(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	return s.changeStatus(ctx, actor, campaignUUID, models.CampaignStatusArchived, models.AuditActionCampaignArchived, metadata)
}

func (s *CampaignFlowImpl) changeStatus(ctx context.Context, actor Actor, campaignUUID string, target models.CampaignStatus, auditAction string, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, campaignUUID)
	if err != nil {
		return nil, err
	}

	if !campaign.CanTransitionTo(target) {
		return nil, NewBusinessErrorf("INVALID_STATUS_TRANSITION", "Cannot transition campaign from %s to %s", ErrInvalidStatusTransition, campaign.Status, target)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.UpdateStatus(txCtx, campaign.ID, target); err != nil {
			return err
		}

		if target == models.CampaignStatusActive {
			// Due immediately; the scheduler picks it up on its next tick.
			return s.campaignRepo.UpdateNextRunAt(txCtx, campaign.ID, utils.UTCNowPtr())
		}
		if target == models.CampaignStatusPaused {
			return s.campaignRepo.UpdateNextRunAt(txCtx, campaign.ID, nil)
		}
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign status change failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, actor, auditAction, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_STATUS_CHANGE_FAILED", "Campaign status change failed", err)
	}

	msg := fmt.Sprintf("Campaign %s moved to %s", campaign.UUID.String(), target)
	_ = createAuditLog(ctx, s.auditRepo, actor, auditAction, msg, true, nil, metadata)

	refreshed, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil || refreshed == nil {
		campaign.Status = target
		refreshed = campaign
	}

	resp := ToCampaignDTO(*refreshed)
	return &resp, nil
}

// validateDefinition checks a campaign's name, type, segment, and config
// together, including template references in the step sequence.
func (s *CampaignFlowImpl) validateDefinition(ctx context.Context, name string, campaignType models.CampaignType, segment *models.SegmentConfig, config *models.CampaignConfig) error {
	if name == "" {
		return ErrCampaignNameRequired
	}
	if !campaignType.Valid() {
		return fmt.Errorf("invalid campaign type: %s", campaignType)
	}
	if err := segment.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	// A one-time blast is a single-step sequence.
	if campaignType == models.CampaignTypeOneTimeBlast && len(config.Steps) > 1 {
		return fmt.Errorf("one_time_blast campaigns allow at most one step, got %d", len(config.Steps))
	}

	for _, step := range config.Steps {
		if step.TemplateID == nil {
			continue
		}
		template, err := s.templateRepo.ByID(ctx, *step.TemplateID)
		if err != nil {
			return err
		}
		if template == nil || template.IsDeleted() {
			return fmt.Errorf("%w: step %d references template %d", ErrTemplateNotFound, step.StepIndex, *step.TemplateID)
		}
		if template.Channel != step.Channel {
			return fmt.Errorf("step %d channel %s does not match template channel %s", step.StepIndex, step.Channel, template.Channel)
		}
	}

	return nil
}
