package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	businessflow "github.com/clearlens/campaign-engine/business_flow"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/gofiber/fiber/v3"
)

// AnalyticsHandlerInterface defines the contract for analytics handlers
type AnalyticsHandlerInterface interface {
	GetCampaignAnalytics(c fiber.Ctx) error
	ExportCampaignAnalytics(c fiber.Ctx) error
	ListCampaignRuns(c fiber.Ctx) error
}

// AnalyticsHandler handles analytics HTTP requests
type AnalyticsHandler struct {
	analyticsFlow businessflow.AnalyticsFlow
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsFlow businessflow.AnalyticsFlow) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsFlow: analyticsFlow,
	}
}

func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AnalyticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetCampaignAnalytics returns aggregate statistics for one campaign
// @Summary Campaign Analytics
// @Tags Analytics
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignAnalyticsResponse}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/analytics [get]
func (h *AnalyticsHandler) GetCampaignAnalytics(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	result, err := h.analyticsFlow.GetCampaignAnalytics(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/analytics"), campaignUUID)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Campaign analytics failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute analytics", "ANALYTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Analytics retrieved successfully", result)
}

// ExportCampaignAnalytics streams the analytics as an XLSX workbook
// @Summary Export Campaign Analytics
// @Tags Analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param uuid path string true "Campaign UUID"
// @Success 200 {file} binary "XLSX workbook"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/analytics/export [get]
func (h *AnalyticsHandler) ExportCampaignAnalytics(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	content, filename, err := h.analyticsFlow.ExportCampaignAnalytics(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/analytics/export"), campaignUUID)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Analytics export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export analytics", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(content)
}

// ListCampaignRuns pages through a campaign's run history
// @Summary List Campaign Runs
// @Tags Analytics
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignRunsResponse}
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/runs [get]
func (h *AnalyticsHandler) ListCampaignRuns(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	limit := 20
	if v, err := strconv.Atoi(c.Query("limit", "20")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}

	req := &dto.ListCampaignRunsRequest{
		UUID:  campaignUUID,
		Page:  page,
		Limit: limit,
	}

	result, err := h.analyticsFlow.ListCampaignRuns(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/runs"), req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("List campaign runs failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list runs", "LIST_RUNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Runs retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}
