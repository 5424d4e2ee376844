package handlers

import (
	"context"
	"log"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/app/middleware"
	businessflow "github.com/clearlens/campaign-engine/business_flow"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// TemplateHandlerInterface defines the contract for template handlers
type TemplateHandlerInterface interface {
	CreateTemplate(c fiber.Ctx) error
	UpdateTemplate(c fiber.Ctx) error
	DeleteTemplate(c fiber.Ctx) error
	GetTemplate(c fiber.Ctx) error
	ListTemplates(c fiber.Ctx) error
}

// TemplateHandler handles message template HTTP requests
type TemplateHandler struct {
	templateFlow businessflow.TemplateFlow
	validator    *validator.Validate
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateFlow businessflow.TemplateFlow) *TemplateHandler {
	return &TemplateHandler{
		templateFlow: templateFlow,
		validator:    validator.New(),
	}
}

func (h *TemplateHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TemplateHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateTemplate creates a new message template
// @Summary Create Template
// @Tags Templates
// @Accept json
// @Produce json
// @Param request body dto.CreateTemplateRequest true "Template definition"
// @Success 201 {object} dto.APIResponse{data=dto.MessageTemplateDTO} "Template created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Name already in use"
// @Router /api/v1/templates [post]
func (h *TemplateHandler) CreateTemplate(c fiber.Ctx) error {
	var req dto.CreateTemplateRequest
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

	result, err := h.templateFlow.CreateTemplate(h.createRequestContext(c, "/api/v1/templates"), actor, &req, metadata)
	if err != nil {
		if businessflow.IsTemplateNameTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A template with this name already exists", "TEMPLATE_NAME_TAKEN", nil)
		}

		log.Println("Template creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template creation failed", "TEMPLATE_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Template created successfully", result)
}

// UpdateTemplate changes a template's name, subject, or body
// @Summary Update Template
// @Tags Templates
// @Accept json
// @Produce json
// @Param uuid path string true "Template UUID"
// @Param request body dto.UpdateTemplateRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.MessageTemplateDTO} "Template updated"
// @Failure 404 {object} dto.APIResponse "Template not found"
// @Failure 409 {object} dto.APIResponse "Name already in use"
// @Router /api/v1/templates/{uuid} [put]
func (h *TemplateHandler) UpdateTemplate(c fiber.Ctx) error {
	templateUUID := c.Params("uuid")
	if templateUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Template UUID is required", "MISSING_TEMPLATE_UUID", nil)
	}

	var req dto.UpdateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = templateUUID

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

	result, err := h.templateFlow.UpdateTemplate(h.createRequestContext(c, "/api/v1/templates/"+templateUUID), actor, &req, metadata)
	if err != nil {
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		if businessflow.IsTemplateNameTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A template with this name already exists", "TEMPLATE_NAME_TAKEN", nil)
		}
		if businessflow.IsTemplateBodyRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template body cannot be empty", "TEMPLATE_BODY_REQUIRED", nil)
		}

		log.Println("Template update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template update failed", "TEMPLATE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template updated successfully", result)
}

// DeleteTemplate soft-deletes an unreferenced template
// @Summary Delete Template
// @Tags Templates
// @Produce json
// @Param uuid path string true "Template UUID"
// @Success 200 {object} dto.APIResponse "Template deleted"
// @Failure 404 {object} dto.APIResponse "Template not found"
// @Failure 409 {object} dto.APIResponse "Template is referenced by campaigns"
// @Router /api/v1/templates/{uuid} [delete]
func (h *TemplateHandler) DeleteTemplate(c fiber.Ctx) error {
	templateUUID := c.Params("uuid")
	if templateUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Template UUID is required", "MISSING_TEMPLATE_UUID", nil)
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Staff account not found in context", "MISSING_ACTOR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err := h.templateFlow.DeleteTemplate(h.createRequestContext(c, "/api/v1/templates/"+templateUUID), actor, templateUUID, metadata)
	if err != nil {
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		if businessflow.IsTemplateInUse(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Template is referenced by campaigns", "TEMPLATE_IN_USE", errDetails(err))
		}

		log.Println("Template deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template deletion failed", "TEMPLATE_DELETION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template deleted successfully", nil)
}

// GetTemplate retrieves one template by UUID
// @Summary Get Template
// @Tags Templates
// @Produce json
// @Param uuid path string true "Template UUID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageTemplateDTO}
// @Failure 404 {object} dto.APIResponse "Template not found"
// @Router /api/v1/templates/{uuid} [get]
func (h *TemplateHandler) GetTemplate(c fiber.Ctx) error {
	templateUUID := c.Params("uuid")
	if templateUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Template UUID is required", "MISSING_TEMPLATE_UUID", nil)
	}

	result, err := h.templateFlow.GetTemplate(h.createRequestContext(c, "/api/v1/templates/"+templateUUID), templateUUID)
	if err != nil {
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}

		log.Println("Get template failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve template", "GET_TEMPLATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template retrieved successfully", result)
}

// ListTemplates lists templates, optionally by channel
// @Summary List Templates
// @Tags Templates
// @Produce json
// @Param channel query string false "Filter by channel (sms|email)"
// @Success 200 {object} dto.APIResponse{data=dto.ListTemplatesResponse}
// @Router /api/v1/templates [get]
func (h *TemplateHandler) ListTemplates(c fiber.Ctx) error {
	var channel *models.MessageChannel
	if raw := c.Query("channel"); raw != "" {
		parsed := models.MessageChannel(raw)
		if !parsed.Valid() {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown channel", "INVALID_CHANNEL", nil)
		}
		channel = &parsed
	}

	result, err := h.templateFlow.ListTemplates(h.createRequestContext(c, "/api/v1/templates"), channel)
	if err != nil {
		log.Println("List templates failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list templates", "LIST_TEMPLATES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Templates retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *TemplateHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}
