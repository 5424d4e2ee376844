package businessflow

import (
	"context"
	"fmt"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	"github.com/xuri/excelize/v2"
)

const recentRunLimit = 10

// AnalyticsFlow aggregates campaign performance numbers
type AnalyticsFlow interface {
	GetCampaignAnalytics(ctx context.Context, campaignUUID string) (*dto.CampaignAnalyticsResponse, error)

	// ExportCampaignAnalytics renders the analytics as an XLSX workbook
	// and returns its bytes plus a suggested file name.
	ExportCampaignAnalytics(ctx context.Context, campaignUUID string) ([]byte, string, error)

	ListCampaignRuns(ctx context.Context, req *dto.ListCampaignRunsRequest) (*dto.ListCampaignRunsResponse, error)
}

// AnalyticsFlowImpl implements the analytics business flow
type AnalyticsFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.CampaignRecipientRepository
	messageRepo   repository.MessageRepository
	runRepo       repository.CampaignRunRepository
}

// NewAnalyticsFlow creates a new analytics flow instance
func NewAnalyticsFlow(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.CampaignRecipientRepository,
	messageRepo repository.MessageRepository,
	runRepo repository.CampaignRunRepository,
) AnalyticsFlow {
	return &AnalyticsFlowImpl{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		messageRepo:   messageRepo,
		runRepo:       runRepo,
	}
}

// GetCampaignAnalytics returns recipient, message, and run statistics
// for one campaign. The conversion rate is converted recipients over all
// recipients ever enrolled, zero when nobody has been enrolled.
func (s *AnalyticsFlowImpl) GetCampaignAnalytics(ctx context.Context, campaignUUID string) (*dto.CampaignAnalyticsResponse, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, campaignUUID)
	if err != nil {
		return nil, err
	}

	recipientCounts, err := s.recipientRepo.CountByStatus(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_FAILED", "Failed to count recipients", err)
	}

	messageCounts, err := s.messageRepo.CountByStatus(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_FAILED", "Failed to count messages", err)
	}

	runs, err := s.runRepo.ListByCampaign(ctx, campaign.ID, recentRunLimit, 0)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_FAILED", "Failed to list runs", err)
	}

	out := &dto.CampaignAnalyticsResponse{
		Campaign:            ToCampaignDTO(*campaign),
		RecipientsActive:    recipientCounts[models.RecipientStatusActive],
		RecipientsCompleted: recipientCounts[models.RecipientStatusCompleted],
		RecipientsConverted: recipientCounts[models.RecipientStatusConverted],
		RecipientsRemoved:   recipientCounts[models.RecipientStatusRemoved],
		MessagesPending:     messageCounts[models.MessageStatusPending],
		MessagesSent:        messageCounts[models.MessageStatusSent],
		MessagesFailed:      messageCounts[models.MessageStatusFailed],
	}
	out.RecipientsTotal = out.RecipientsActive + out.RecipientsCompleted + out.RecipientsConverted + out.RecipientsRemoved
	out.MessagesTotal = out.MessagesPending + out.MessagesSent + out.MessagesFailed

	if out.RecipientsTotal > 0 {
		out.ConversionRate = float64(out.RecipientsConverted) / float64(out.RecipientsTotal)
	}

	out.RecentRuns = make([]dto.CampaignRunDTO, 0, len(runs))
	for _, run := range runs {
		out.RecentRuns = append(out.RecentRuns, ToRunDTO(*run))
	}

	return out, nil
}

// ExportCampaignAnalytics renders the analytics as an XLSX workbook with
// a summary sheet and a run history sheet.
func (s *AnalyticsFlowImpl) ExportCampaignAnalytics(ctx context.Context, campaignUUID string) ([]byte, string, error) {
	analytics, err := s.GetCampaignAnalytics(ctx, campaignUUID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
	}

	rows := [][]any{
		{"Campaign", analytics.Campaign.Name},
		{"Type", analytics.Campaign.Type},
		{"Status", analytics.Campaign.Status},
		{},
		{"Recipients total", analytics.RecipientsTotal},
		{"Recipients active", analytics.RecipientsActive},
		{"Recipients completed", analytics.RecipientsCompleted},
		{"Recipients converted", analytics.RecipientsConverted},
		{"Recipients removed", analytics.RecipientsRemoved},
		{},
		{"Messages total", analytics.MessagesTotal},
		{"Messages pending", analytics.MessagesPending},
		{"Messages sent", analytics.MessagesSent},
		{"Messages failed", analytics.MessagesFailed},
		{},
		{"Conversion rate", analytics.ConversionRate},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
		}
	}

	const runSheet = "Runs"
	if _, err := f.NewSheet(runSheet); err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
	}

	header := []any{"Started", "Finished", "Trigger", "Status", "Processed", "Sent", "Converted", "Completed", "Enrolled", "Failed"}
	if err := f.SetSheetRow(runSheet, "A1", &header); err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
	}
	for i, run := range analytics.RecentRuns {
		row := []any{run.StartedAt, run.FinishedAt, run.Trigger, run.Status, run.Processed, run.Sent, run.Converted, run.Completed, run.Enrolled, run.Failed}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(runSheet, cell, &row); err != nil {
			return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", NewBusinessError("EXPORT_FAILED", "Failed to write workbook", err)
	}

	filename := fmt.Sprintf("campaign-%s-analytics.xlsx", analytics.Campaign.UUID)
	return buf.Bytes(), filename, nil
}

// ListCampaignRuns pages through a campaign's run history, newest first
func (s *AnalyticsFlowImpl) ListCampaignRuns(ctx context.Context, req *dto.ListCampaignRunsRequest) (*dto.ListCampaignRunsResponse, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.UUID)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	runs, err := s.runRepo.ListByCampaign(ctx, campaign.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("RUN_LIST_FAILED", "Failed to list runs", err)
	}

	items := make([]dto.CampaignRunDTO, 0, len(runs))
	for _, run := range runs {
		items = append(items, ToRunDTO(*run))
	}

	return &dto.ListCampaignRunsResponse{Items: items}, nil
}
