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

// TemplateFlow manages reusable message templates
type TemplateFlow interface {
	CreateTemplate(ctx context.Context, actor Actor, req *dto.CreateTemplateRequest, metadata *ClientMetadata) (*dto.MessageTemplateDTO, error)
	UpdateTemplate(ctx context.Context, actor Actor, req *dto.UpdateTemplateRequest, metadata *ClientMetadata) (*dto.MessageTemplateDTO, error)
	DeleteTemplate(ctx context.Context, actor Actor, templateUUID string, metadata *ClientMetadata) error
	GetTemplate(ctx context.Context, templateUUID string) (*dto.MessageTemplateDTO, error)
	ListTemplates(ctx context.Context, channel *models.MessageChannel) (*dto.ListTemplatesResponse, error)
}

// TemplateFlowImpl implements the template management business flow
type TemplateFlowImpl struct {
	templateRepo repository.MessageTemplateRepository
	campaignRepo repository.CampaignRepository
	auditRepo    repository.AuditLogRepository
	db           *gorm.DB
}

// NewTemplateFlow creates a new template flow instance
func NewTemplateFlow(
	templateRepo repository.MessageTemplateRepository,
	campaignRepo repository.CampaignRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) TemplateFlow {
	return &TemplateFlowImpl{
		templateRepo: templateRepo,
		campaignRepo: campaignRepo,
		auditRepo:    auditRepo,
		db:           db,
	}
}

// CreateTemplate creates a new message template. Names are unique among
// non-deleted templates.
func (s *TemplateFlowImpl) CreateTemplate(ctx context.Context, actor Actor, req *dto.CreateTemplateRequest, metadata *ClientMetadata) (*dto.MessageTemplateDTO, error) {
	channel := models.MessageChannel(req.Channel)
	if !channel.Valid() {
		return nil, NewBusinessErrorf("INVALID_CHANNEL", "Unknown channel: %s", nil, req.Channel)
	}

	existing, err := s.templateRepo.ByName(ctx, req.Name)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to check template name", err)
	}
	if existing != nil {
		return nil, NewBusinessError("TEMPLATE_NAME_TAKEN", "A template with this name already exists", ErrTemplateNameTaken)
	}

	template := &models.MessageTemplate{
		Name:      req.Name,
		Channel:   channel,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedBy: actor.StaffID,
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.templateRepo.Save(txCtx, template); err != nil {
			return err
		}
		return createAuditLog(txCtx, s.auditRepo, actor, models.AuditActionTemplateCreated,
			fmt.Sprintf("Template %q created", template.Name), true, nil, metadata)
	})
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_CREATE_FAILED", "Failed to create template", err)
	}

	out := ToTemplateDTO(*template)
	return &out, nil
}

// UpdateTemplate changes name, subject, or body. The channel is fixed at
// creation; campaigns validate step channels against it.
func (s *TemplateFlowImpl) UpdateTemplate(ctx context.Context, actor Actor, req *dto.UpdateTemplateRequest, metadata *ClientMetadata) (*dto.MessageTemplateDTO, error) {
	template, err := s.getTemplateByUUID(ctx, req.UUID)
	if err != nil {
		return nil, err
	}

	if req.Name == nil && req.Subject == nil && req.Body == nil {
		return nil, NewBusinessError("TEMPLATE_UPDATE_REQUIRED", "At least one field must be provided", nil)
	}

	if req.Name != nil && *req.Name != template.Name {
		existing, err := s.templateRepo.ByName(ctx, *req.Name)
		if err != nil {
			return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to check template name", err)
		}
		if existing != nil {
			return nil, NewBusinessError("TEMPLATE_NAME_TAKEN", "A template with this name already exists", ErrTemplateNameTaken)
		}
		template.Name = *req.Name
	}
	if req.Subject != nil {
		template.Subject = req.Subject
	}
	if req.Body != nil {
		if *req.Body == "" {
			return nil, NewBusinessError("TEMPLATE_BODY_REQUIRED", "Template body cannot be empty", ErrTemplateBodyRequired)
		}
		template.Body = *req.Body
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.templateRepo.Update(txCtx, *template); err != nil {
			return err
		}
		return createAuditLog(txCtx, s.auditRepo, actor, models.AuditActionTemplateUpdated,
			fmt.Sprintf("Template %q updated", template.Name), true, nil, metadata)
	})
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_UPDATE_FAILED", "Failed to update template", err)
	}

	out := ToTemplateDTO(*template)
	return &out, nil
}

// DeleteTemplate soft-deletes a template. Templates referenced by any
// campaign's steps cannot be deleted.
func (s *TemplateFlowImpl) DeleteTemplate(ctx context.Context, actor Actor, templateUUID string, metadata *ClientMetadata) error {
	template, err := s.getTemplateByUUID(ctx, templateUUID)
	if err != nil {
		return err
	}

	references, err := s.campaignRepo.CountReferencingTemplate(ctx, template.ID)
	if err != nil {
		return NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to check template references", err)
	}
	if references > 0 {
		return NewBusinessErrorf("TEMPLATE_IN_USE", "Template is referenced by %d campaign(s)", ErrTemplateInUse, references)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.templateRepo.SoftDelete(txCtx, template.ID, utils.UTCNow()); err != nil {
			return err
		}
		return createAuditLog(txCtx, s.auditRepo, actor, models.AuditActionTemplateDeleted,
			fmt.Sprintf("Template %q deleted", template.Name), true, nil, metadata)
	})
	if err != nil {
		return NewBusinessError("TEMPLATE_DELETE_FAILED", "Failed to delete template", err)
	}

	return nil
}

// GetTemplate retrieves one template by UUID
func (s *TemplateFlowImpl) GetTemplate(ctx context.Context, templateUUID string) (*dto.MessageTemplateDTO, error) {
	template, err := s.getTemplateByUUID(ctx, templateUUID)
	if err != nil {
		return nil, err
	}

	out := ToTemplateDTO(*template)
	return &out, nil
}

// ListTemplates lists non-deleted templates, optionally by channel
func (s *TemplateFlowImpl) ListTemplates(ctx context.Context, channel *models.MessageChannel) (*dto.ListTemplatesResponse, error) {
	filter := models.MessageTemplateFilter{Channel: channel}
	templates, err := s.templateRepo.ByFilter(ctx, filter, "name ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LIST_FAILED", "Failed to list templates", err)
	}

	items := make([]dto.MessageTemplateDTO, 0, len(templates))
	for _, template := range templates {
		items = append(items, ToTemplateDTO(*template))
	}

	return &dto.ListTemplatesResponse{Items: items}, nil
}

func (s *TemplateFlowImpl) getTemplateByUUID(ctx context.Context, rawUUID string) (*models.MessageTemplate, error) {
	template, err := s.templateRepo.ByUUID(ctx, rawUUID)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_NOT_FOUND", "Template not found", ErrTemplateNotFound)
	}
	if template == nil || template.IsDeleted() {
		return nil, NewBusinessError("TEMPLATE_NOT_FOUND", "Template not found", ErrTemplateNotFound)
	}
	return template, nil
}
