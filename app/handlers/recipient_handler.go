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

// RecipientHandlerInterface defines the contract for recipient handlers
type RecipientHandlerInterface interface {
	EnrollCustomer(c fiber.Ctx) error
	RemoveRecipient(c fiber.Ctx) error
	ListRecipients(c fiber.Ctx) error
}

// RecipientHandler handles enrollment-related HTTP requests
type RecipientHandler struct {
	enrollmentFlow businessflow.EnrollmentFlow
	validator      *validator.Validate
}

// NewRecipientHandler creates a new recipient handler
func NewRecipientHandler(enrollmentFlow businessflow.EnrollmentFlow) *RecipientHandler {
	return &RecipientHandler{
		enrollmentFlow: enrollmentFlow,
		validator:      validator.New(),
	}
}

func (h *RecipientHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RecipientHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// EnrollCustomer adds a customer to a campaign
// @Summary Enroll Customer
// @Description Enroll a customer in a campaign. Enrolling an already active recipient is a no-op.
// @Tags Recipients
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.EnrollCustomerRequest true "Customer to enroll"
// @Success 201 {object} dto.APIResponse{data=dto.EnrollCustomerResponse} "Customer enrolled"
// @Success 200 {object} dto.APIResponse{data=dto.EnrollCustomerResponse} "Customer already enrolled"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Campaign or customer not found"
// @Failure 409 {object} dto.APIResponse "Enrollment blocked by cooldown or opt-out"
// @Router /api/v1/campaigns/{uuid}/recipients [post]
func (h *RecipientHandler) EnrollCustomer(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.EnrollCustomerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.CampaignUUID = campaignUUID

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

	result, err := h.enrollmentFlow.EnrollCustomer(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients"), actor, &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignArchived(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Archived campaigns do not accept enrollments", "CAMPAIGN_ARCHIVED", nil)
		}
		if businessflow.IsCustomerOptedOut(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Customer has opted out of marketing", "CUSTOMER_OPTED_OUT", nil)
		}
		if businessflow.IsCooldownNotElapsed(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Cooldown period has not elapsed", "COOLDOWN_NOT_ELAPSED", nil)
		}

		log.Println("Enrollment failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Enrollment failed", "ENROLLMENT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Customer enrolled", result)
}

// RemoveRecipient takes a recipient out of a campaign
// @Summary Remove Recipient
// @Tags Recipients
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.RemoveRecipientRequest true "Customer to remove"
// @Success 200 {object} dto.APIResponse{data=dto.RemoveRecipientResponse} "Recipient removed"
// @Failure 404 {object} dto.APIResponse "Campaign or recipient not found"
// @Failure 409 {object} dto.APIResponse "Recipient already terminated"
// @Router /api/v1/campaigns/{uuid}/recipients [delete]
func (h *RecipientHandler) RemoveRecipient(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.RemoveRecipientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.CampaignUUID = campaignUUID

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

	result, err := h.enrollmentFlow.RemoveRecipient(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients"), actor, &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}
		if businessflow.IsRecipientTerminated(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Recipient is no longer active", "RECIPIENT_TERMINATED", nil)
		}

		log.Println("Recipient removal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient removal failed", "REMOVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient removed", result)
}

// ListRecipients pages through a campaign's recipients
// @Summary List Recipients
// @Tags Recipients
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(25)
// @Param status query string false "Filter by status (active|completed|converted|removed)"
// @Success 200 {object} dto.APIResponse{data=dto.ListRecipientsResponse}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/recipients [get]
func (h *RecipientHandler) ListRecipients(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	limit := 25
	if v, err := strconv.Atoi(c.Query("limit", "25")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}

	req := &dto.ListRecipientsRequest{
		CampaignUUID: campaignUUID,
		Page:         page,
		Limit:        limit,
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
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

	result, err := h.enrollmentFlow.ListRecipients(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients"), actor, req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("List recipients failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list recipients", "LIST_RECIPIENTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *RecipientHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}
