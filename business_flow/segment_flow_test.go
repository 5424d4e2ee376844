package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCustomers(t *testing.T, repo *fakeCustomerRepo) {
	t.Helper()

	now := utils.UTCNow()
	customers := []*models.Customer{
		{FirstName: "Ana", LastName: "Silva", City: utils.ToPtr("Portland"), LastExamAt: utils.ToPtr(now.Add(-400 * 24 * time.Hour))},
		{FirstName: "Ben", LastName: "Cho", City: utils.ToPtr("Portland"), LastExamAt: utils.ToPtr(now.Add(-30 * 24 * time.Hour))},
		{FirstName: "Cleo", LastName: "Marsh", City: utils.ToPtr("Salem"), LastExamAt: utils.ToPtr(now.Add(-500 * 24 * time.Hour))},
		{FirstName: "Dev", LastName: "Patel", City: utils.ToPtr("Portland"), MarketingOptOut: true, LastExamAt: utils.ToPtr(now.Add(-500 * 24 * time.Hour))},
	}
	for _, c := range customers {
		require.NoError(t, repo.Save(context.Background(), c))
	}
}

func TestPreviewSegment(t *testing.T) {
	customerRepo := newFakeCustomerRepo()
	seedCustomers(t, customerRepo)
	flow := NewSegmentFlow(customerRepo, nil)

	resp, err := flow.PreviewSegment(context.Background(), adminActor(), &dto.PreviewSegmentRequest{
		Segment: models.SegmentConfig{
			Logic: models.SegmentLogicAnd,
			Conditions: []models.SegmentCondition{
				{Field: "last_exam_at", Operator: models.SegmentOpOlderThanDays, Value: 365},
			},
			ExcludeMarketingOptOut: true,
		},
	}, nil)
	require.NoError(t, err)

	// Ana and Cleo are overdue; Dev is excluded by opt-out.
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Sample, 2)
	assert.False(t, resp.Cached)
}

func TestPreviewSegmentOrLogic(t *testing.T) {
	customerRepo := newFakeCustomerRepo()
	seedCustomers(t, customerRepo)
	flow := NewSegmentFlow(customerRepo, nil)

	resp, err := flow.PreviewSegment(context.Background(), adminActor(), &dto.PreviewSegmentRequest{
		Segment: models.SegmentConfig{
			Logic: models.SegmentLogicOr,
			Conditions: []models.SegmentCondition{
				{Field: "city", Operator: models.SegmentOpEq, Value: "Salem"},
				{Field: "last_exam_at", Operator: models.SegmentOpWithinDays, Value: 90},
			},
		},
	}, nil)
	require.NoError(t, err)

	// Ben examined recently and Cleo lives in Salem; Dev is Portland
	// and overdue, so only the first two match.
	assert.Equal(t, int64(2), resp.Total)
}

func TestPreviewSegmentRejectsInvalidDefinition(t *testing.T) {
	flow := NewSegmentFlow(newFakeCustomerRepo(), nil)

	_, err := flow.PreviewSegment(context.Background(), adminActor(), &dto.PreviewSegmentRequest{
		Segment: models.SegmentConfig{
			Conditions: []models.SegmentCondition{
				{Field: "favorite_color", Operator: models.SegmentOpEq, Value: "blue"},
			},
		},
	}, nil)
	require.Error(t, err)
}

func TestPreviewSegmentSampleLimit(t *testing.T) {
	customerRepo := newFakeCustomerRepo()
	for range 10 {
		require.NoError(t, customerRepo.Save(context.Background(), &models.Customer{FirstName: "X", LastName: "Y"}))
	}
	flow := NewSegmentFlow(customerRepo, nil)

	resp, err := flow.PreviewSegment(context.Background(), adminActor(), &dto.PreviewSegmentRequest{
		Segment: models.SegmentConfig{Logic: models.SegmentLogicAnd},
		Limit:   3,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(10), resp.Total)
	assert.Len(t, resp.Sample, 3)
}
