package businessflow

import (
	"context"
	"testing"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type campaignFixture struct {
	flow         CampaignFlow
	campaignRepo *fakeCampaignRepo
	templateRepo *fakeTemplateRepo
	auditRepo    *fakeAuditRepo
	actor        Actor
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	t.Helper()

	campaignRepo := newFakeCampaignRepo()
	templateRepo := newFakeTemplateRepo()
	auditRepo := newFakeAuditRepo()

	return &campaignFixture{
		flow:         NewCampaignFlow(campaignRepo, templateRepo, auditRepo, nil),
		campaignRepo: campaignRepo,
		templateRepo: templateRepo,
		auditRepo:    auditRepo,
		actor:        Actor{StaffID: 1, Email: "manager@clearlens.io", Role: models.StaffRoleStaff},
	}
}

func validCreateRequest() *dto.CreateCampaignRequest {
	return &dto.CreateCampaignRequest{
		Name:    "lapsed-exam-winback",
		Type:    models.CampaignTypeDrip.String(),
		Segment: models.SegmentConfig{Logic: models.SegmentLogicAnd, ExcludeMarketingOptOut: true},
		Config:  dripConfig(0, 7),
	}
}

func (f *campaignFixture) create(t *testing.T) *dto.CampaignDTO {
	t.Helper()
	created, err := f.flow.CreateCampaign(context.Background(), f.actor, validCreateRequest(), nil)
	require.NoError(t, err)
	return created
}

func TestCreateCampaignStartsInDraft(t *testing.T) {
	f := newCampaignFixture(t)

	created := f.create(t)

	assert.Equal(t, models.CampaignStatusDraft.String(), created.Status)
	assert.Equal(t, f.actor.StaffID, created.CreatedBy)
	assert.NotEmpty(t, created.UUID)
	assert.Empty(t, created.NextRunAt)
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newCampaignFixture(t)

	tests := []struct {
		name   string
		mutate func(*dto.CreateCampaignRequest)
	}{
		{
			name:   "empty name",
			mutate: func(r *dto.CreateCampaignRequest) { r.Name = "" },
		},
		{
			name:   "unknown type",
			mutate: func(r *dto.CreateCampaignRequest) { r.Type = "flash_sale" },
		},
		{
			name: "unknown segment field",
			mutate: func(r *dto.CreateCampaignRequest) {
				r.Segment.Conditions = []models.SegmentCondition{
					{Field: "shoe_size", Operator: models.SegmentOpEq, Value: "42"},
				}
			},
		},
		{
			name: "one time blast with two steps",
			mutate: func(r *dto.CreateCampaignRequest) {
				r.Type = models.CampaignTypeOneTimeBlast.String()
			},
		},
		{
			name: "step with both template and body",
			mutate: func(r *dto.CreateCampaignRequest) {
				r.Config.Steps[0].TemplateID = utils.ToPtr(uint(1))
			},
		},
		{
			name: "out of order delays",
			mutate: func(r *dto.CreateCampaignRequest) {
				r.Config.Steps[0].DelayDays = 10
			},
		},
		{
			name: "missing template reference",
			mutate: func(r *dto.CreateCampaignRequest) {
				r.Config.Steps[0].Body = nil
				r.Config.Steps[0].TemplateID = utils.ToPtr(uint(99))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)

			_, err := f.flow.CreateCampaign(context.Background(), f.actor, req, nil)
			require.Error(t, err)
		})
	}
}

func TestCreateCampaignTemplateChannelMismatch(t *testing.T) {
	f := newCampaignFixture(t)

	template := &models.MessageTemplate{Name: "email-only", Channel: models.MessageChannelEmail, Body: "hi"}
	require.NoError(t, f.templateRepo.Save(context.Background(), template))

	req := validCreateRequest()
	req.Config.Steps[0].Body = nil
	req.Config.Steps[0].TemplateID = &template.ID

	// Step channel is sms, template is email.
	_, err := f.flow.CreateCampaign(context.Background(), f.actor, req, nil)
	require.Error(t, err)
}

func TestUpdateCampaignRequiresAField(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.create(t)

	_, err := f.flow.UpdateCampaign(context.Background(), f.actor, &dto.UpdateCampaignRequest{UUID: created.UUID}, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignUpdateRequired(err))
}

func TestUpdateCampaignSegmentOnlyInDraft(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.create(t)

	_, err := f.flow.ActivateCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)

	segment := models.SegmentConfig{Logic: models.SegmentLogicOr}
	_, err = f.flow.UpdateCampaign(context.Background(), f.actor, &dto.UpdateCampaignRequest{
		UUID:    created.UUID,
		Segment: &segment,
	}, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignNotEditable(err))

	// Name changes stay allowed while active.
	updated, err := f.flow.UpdateCampaign(context.Background(), f.actor, &dto.UpdateCampaignRequest{
		UUID: created.UUID,
		Name: utils.ToPtr("renamed"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
}

func TestUpdateCampaignArchivedRejected(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.create(t)

	_, err := f.flow.ArchiveCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)

	_, err = f.flow.UpdateCampaign(context.Background(), f.actor, &dto.UpdateCampaignRequest{
		UUID: created.UUID,
		Name: utils.ToPtr("too late"),
	}, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignArchived(err))
}

func TestDeleteCampaignOnlyInDraft(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.create(t)

	_, err := f.flow.ActivateCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)

	err = f.flow.DeleteCampaign(context.Background(), f.actor, created.UUID, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignNotDeletable(err))
}

func TestDeleteDraftCampaign(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.create(t)

	require.NoError(t, f.flow.DeleteCampaign(context.Background(), f.actor, created.UUID, nil))

	_, err := f.flow.GetCampaign(context.Background(), f.actor, created.UUID, nil)
	require.Error(t, err)
	assert.True(t, IsCampaignNotFound(err))
}

func TestActivateCampaignSchedulesImmediateRun(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.create(t)

	activated, err := f.flow.ActivateCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.CampaignStatusActive.String(), activated.Status)
	assert.NotEmpty(t, activated.NextRunAt)
}

func TestPauseCampaignClearsSchedule(t *testing.T) {
	f := newCampaignFixture(t)
	created := f.create(t)

	_, err := f.flow.ActivateCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)

	paused, err := f.flow.PauseCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.CampaignStatusPaused.String(), paused.Status)
	assert.Empty(t, paused.NextRunAt)
}

func TestCampaignStatusTransitions(t *testing.T) {
	f := newCampaignFixture(t)

	// Draft cannot pause.
	created := f.create(t)
	_, err := f.flow.PauseCampaign(context.Background(), f.actor, created.UUID, nil)
	require.Error(t, err)
	assert.True(t, IsInvalidStatusTransition(err))

	// Paused can reactivate.
	_, err = f.flow.ActivateCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)
	_, err = f.flow.PauseCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)
	reactivated, err := f.flow.ActivateCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive.String(), reactivated.Status)

	// Archived is terminal.
	_, err = f.flow.ArchiveCampaign(context.Background(), f.actor, created.UUID, nil)
	require.NoError(t, err)
	_, err = f.flow.ActivateCampaign(context.Background(), f.actor, created.UUID, nil)
	require.Error(t, err)
	assert.True(t, IsInvalidStatusTransition(err))
}

func TestListCampaignsFilters(t *testing.T) {
	f := newCampaignFixture(t)

	first := f.create(t)
	f.create(t)
	_, err := f.flow.ActivateCampaign(context.Background(), f.actor, first.UUID, nil)
	require.NoError(t, err)

	active := models.CampaignStatusActive.String()
	resp, err := f.flow.ListCampaigns(context.Background(), f.actor, &dto.ListCampaignsRequest{Status: &active}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, first.UUID, resp.Items[0].UUID)

	resp, err = f.flow.ListCampaigns(context.Background(), f.actor, &dto.ListCampaignsRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
}
