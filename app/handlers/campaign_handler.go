// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/app/middleware"
	businessflow "github.com/clearlens/campaign-engine/business_flow"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	ActivateCampaign(c fiber.Ctx) error
	PauseCampaign(c fiber.Ctx) error
	ArchiveCampaign(c fiber.Ctx) error
	TriggerCampaignRun(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	runFlow      businessflow.RunFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, runFlow businessflow.RunFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		runFlow:      runFlow,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new campaign in draft status
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign definition"
// @Success 201 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/campaigns"), actor, &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNameRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign name is required", "CAMPAIGN_NAME_REQUIRED", nil)
		}
		if businessflow.IsInvalidSegment(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Segment definition is invalid", "INVALID_SEGMENT", errDetails(err))
		}
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Referenced template not found", "TEMPLATE_NOT_FOUND", nil)
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", errDetails(err))
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// UpdateCampaign handles the campaign update process
// @Summary Update Campaign
// @Description Update a campaign. Segment and config changes require draft status.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.UpdateCampaignRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 403 {object} dto.APIResponse "Campaign not editable in current status"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid} [put]
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.UpdateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = campaignUUID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.UpdateCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), actor, &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignArchived(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Archived campaigns cannot be changed", "CAMPAIGN_ARCHIVED", nil)
		}
		if businessflow.IsCampaignNotEditable(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Segment and steps can only change while the campaign is a draft", "CAMPAIGN_NOT_EDITABLE", nil)
		}
		if businessflow.IsCampaignUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field must be provided", "CAMPAIGN_UPDATE_REQUIRED", nil)
		}
		if businessflow.IsInvalidSegment(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Segment definition is invalid", "INVALID_SEGMENT", errDetails(err))
		}
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Referenced template not found", "TEMPLATE_NOT_FOUND", nil)
		}

		log.Println("Campaign update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED", errDetails(err))
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// DeleteCampaign handles campaign deletion
// @Summary Delete Campaign
// @Description Delete a draft campaign. Non-draft campaigns must be archived instead.
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse "Campaign deleted successfully"
// @Failure 403 {object} dto.APIResponse "Campaign is not a draft"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid} [delete]
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err := h.campaignFlow.DeleteCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), actor, campaignUUID, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignNotDeletable(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Only draft campaigns can be deleted", "CAMPAIGN_NOT_DELETABLE", nil)
		}

		log.Println("Campaign deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign deletion failed", "CAMPAIGN_DELETION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted successfully", nil)
}

// GetCampaign returns one campaign by UUID
// @Summary Get Campaign
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.GetCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), actor, campaignUUID, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Get campaign failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve campaign", "GET_CAMPAIGN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns returns campaigns with filters and pagination
// @Summary List Campaigns
// @Tags Campaigns
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(10)
// @Param status query string false "Filter by status (draft|active|paused|archived)"
// @Param type query string false "Filter by type (one_time_blast|recurring_reminder|drip)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	limit := 10
	if v, err := strconv.Atoi(c.Query("limit", "10")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}

	req := &dto.ListCampaignsRequest{
		Page:  page,
		Limit: limit,
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if campaignType := c.Query("type"); campaignType != "" {
		req.Type = &campaignType
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c, "/api/v1/campaigns"), actor, req, metadata)
	if err != nil {
		log.Println("List campaigns failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// ActivateCampaign transitions a campaign to active
// @Summary Activate Campaign
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Invalid status transition"
// @Router /api/v1/campaigns/{uuid}/activate [post]
func (h *CampaignHandler) ActivateCampaign(c fiber.Ctx) error {
	return h.changeStatus(c, "activate", h.campaignFlow.ActivateCampaign)
}

// PauseCampaign transitions a campaign to paused
// @Summary Pause Campaign
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Invalid status transition"
// @Router /api/v1/campaigns/{uuid}/pause [post]
func (h *CampaignHandler) PauseCampaign(c fiber.Ctx) error {
	return h.changeStatus(c, "pause", h.campaignFlow.PauseCampaign)
}

// ArchiveCampaign transitions a campaign to its terminal archived state
// @Summary Archive Campaign
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Invalid status transition"
// @Router /api/v1/campaigns/{uuid}/archive [post]
func (h *CampaignHandler) ArchiveCampaign(c fiber.Ctx) error {
	return h.changeStatus(c, "archive", h.campaignFlow.ArchiveCampaign)
}

type statusChangeFunc func(ctx context.Context, actor businessflow.Actor, campaignUUID string, metadata *businessflow.ClientMetadata) (*dto.CampaignDTO, error)

func (h *CampaignHandler) changeStatus(c fiber.Ctx, action string, change statusChangeFunc) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := change(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/"+action), actor, campaignUUID, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Status transition not allowed", "INVALID_STATUS_TRANSITION", errDetails(err))
		}

		log.Println("Campaign status change failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign status change failed", "STATUS_CHANGE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign "+result.Status, result)
}

// TriggerCampaignRun starts a pass immediately. Restricted to admins.
// @Summary Trigger Campaign Run
// @Description Start a processing pass for an active campaign right away
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TriggerCampaignRunResponse}
// @Failure 403 {object} dto.APIResponse "Caller is not an admin"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "A run is already in progress"
// @Router /api/v1/campaigns/{uuid}/run [post]
func (h *CampaignHandler) TriggerCampaignRun(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.runFlow.TriggerCampaignRun(h.createRequestContextWithTimeout(c, "/api/v1/campaigns/"+campaignUUID+"/run", 5*time.Minute), actor, campaignUUID, metadata)
	if err != nil {
		if businessflow.IsAdminOnly(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin only", "ADMIN_ONLY", nil)
		}
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignNotActive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Only active campaigns can be run", "CAMPAIGN_NOT_ACTIVE", nil)
		}
		if businessflow.IsCampaignRunInProgress(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A run is already in progress for this campaign", "CAMPAIGN_RUN_IN_PROGRESS", nil)
		}

		log.Println("Campaign run failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign run failed", "CAMPAIGN_RUN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign run completed", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *CampaignHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}
