package handlers

import (
	"context"
	"log"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/app/middleware"
	businessflow "github.com/clearlens/campaign-engine/business_flow"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// SegmentHandlerInterface defines the contract for segment handlers
type SegmentHandlerInterface interface {
	PreviewSegment(c fiber.Ctx) error
}

// SegmentHandler handles segment preview HTTP requests
type SegmentHandler struct {
	segmentFlow businessflow.SegmentFlow
	validator   *validator.Validate
}

// NewSegmentHandler creates a new segment handler
func NewSegmentHandler(segmentFlow businessflow.SegmentFlow) *SegmentHandler {
	return &SegmentHandler{
		segmentFlow: segmentFlow,
		validator:   validator.New(),
	}
}

func (h *SegmentHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SegmentHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// PreviewSegment evaluates a segment and returns its size plus a sample
// @Summary Preview Segment
// @Description Count the customers matching a segment definition and return a small sample
// @Tags Segments
// @Accept json
// @Produce json
// @Param request body dto.PreviewSegmentRequest true "Segment to evaluate"
// @Success 200 {object} dto.APIResponse{data=dto.PreviewSegmentResponse}
// @Failure 400 {object} dto.APIResponse "Invalid segment definition"
// @Router /api/v1/segments/preview [post]
func (h *SegmentHandler) PreviewSegment(c fiber.Ctx) error {
	var req dto.PreviewSegmentRequest
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

	result, err := h.segmentFlow.PreviewSegment(h.createRequestContext(c, "/api/v1/segments/preview"), actor, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidSegment(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Segment definition is invalid", "INVALID_SEGMENT", errDetails(err))
		}

		log.Println("Segment preview failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Segment preview failed", "SEGMENT_PREVIEW_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Segment evaluated successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *SegmentHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}
