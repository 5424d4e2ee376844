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

type templateFixture struct {
	flow         TemplateFlow
	templateRepo *fakeTemplateRepo
	campaignRepo *fakeCampaignRepo
	auditRepo    *fakeAuditRepo
	actor        Actor
}

func newTemplateFixture(t *testing.T) *templateFixture {
	t.Helper()

	templateRepo := newFakeTemplateRepo()
	campaignRepo := newFakeCampaignRepo()
	auditRepo := newFakeAuditRepo()

	return &templateFixture{
		flow:         NewTemplateFlow(templateRepo, campaignRepo, auditRepo, nil),
		templateRepo: templateRepo,
		campaignRepo: campaignRepo,
		auditRepo:    auditRepo,
		actor:        Actor{StaffID: 1, Email: "manager@clearlens.io", Role: models.StaffRoleStaff},
	}
}

func (f *templateFixture) create(t *testing.T, name string) *dto.MessageTemplateDTO {
	t.Helper()
	created, err := f.flow.CreateTemplate(context.Background(), f.actor, &dto.CreateTemplateRequest{
		Name:    name,
		Channel: models.MessageChannelSMS.String(),
		Body:    "Hi {{firstName}}, book your exam.",
	}, nil)
	require.NoError(t, err)
	return created
}

func TestCreateTemplate(t *testing.T) {
	f := newTemplateFixture(t)

	created := f.create(t, "exam-reminder")

	assert.Equal(t, "exam-reminder", created.Name)
	assert.Equal(t, models.MessageChannelSMS.String(), created.Channel)
	assert.Equal(t, f.actor.StaffID, created.CreatedBy)
	assert.NotEmpty(t, created.UUID)

	entries, err := f.auditRepo.ListByAction(context.Background(), models.AuditActionTemplateCreated, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateTemplateInvalidChannel(t *testing.T) {
	f := newTemplateFixture(t)

	_, err := f.flow.CreateTemplate(context.Background(), f.actor, &dto.CreateTemplateRequest{
		Name:    "fax-blast",
		Channel: "fax",
		Body:    "hello",
	}, nil)
	require.Error(t, err)
}

func TestCreateTemplateNameTaken(t *testing.T) {
	f := newTemplateFixture(t)
	f.create(t, "exam-reminder")

	_, err := f.flow.CreateTemplate(context.Background(), f.actor, &dto.CreateTemplateRequest{
		Name:    "exam-reminder",
		Channel: models.MessageChannelEmail.String(),
		Body:    "different body",
	}, nil)
	require.Error(t, err)
	assert.True(t, IsTemplateNameTaken(err))
}

func TestUpdateTemplate(t *testing.T) {
	f := newTemplateFixture(t)
	created := f.create(t, "exam-reminder")

	updated, err := f.flow.UpdateTemplate(context.Background(), f.actor, &dto.UpdateTemplateRequest{
		UUID: created.UUID,
		Body: utils.ToPtr("Hi {{firstName}}, new copy."),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi {{firstName}}, new copy.", updated.Body)
	assert.Equal(t, created.Name, updated.Name)
}

func TestUpdateTemplateRenameToTakenName(t *testing.T) {
	f := newTemplateFixture(t)
	f.create(t, "exam-reminder")
	other := f.create(t, "birthday-offer")

	_, err := f.flow.UpdateTemplate(context.Background(), f.actor, &dto.UpdateTemplateRequest{
		UUID: other.UUID,
		Name: utils.ToPtr("exam-reminder"),
	}, nil)
	require.Error(t, err)
	assert.True(t, IsTemplateNameTaken(err))
}

func TestUpdateTemplateEmptyBodyRejected(t *testing.T) {
	f := newTemplateFixture(t)
	created := f.create(t, "exam-reminder")

	_, err := f.flow.UpdateTemplate(context.Background(), f.actor, &dto.UpdateTemplateRequest{
		UUID: created.UUID,
		Body: utils.ToPtr(""),
	}, nil)
	require.Error(t, err)
	assert.True(t, IsTemplateBodyRequired(err))
}

func TestDeleteTemplate(t *testing.T) {
	f := newTemplateFixture(t)
	created := f.create(t, "exam-reminder")

	require.NoError(t, f.flow.DeleteTemplate(context.Background(), f.actor, created.UUID, nil))

	_, err := f.flow.GetTemplate(context.Background(), created.UUID)
	require.Error(t, err)
	assert.True(t, IsTemplateNotFound(err))

	// The name frees up for reuse after deletion.
	f.create(t, "exam-reminder")
}

func TestDeleteTemplateReferencedByCampaign(t *testing.T) {
	f := newTemplateFixture(t)
	created := f.create(t, "exam-reminder")

	campaign := &models.Campaign{
		Name:   "winback",
		Type:   models.CampaignTypeDrip,
		Status: models.CampaignStatusDraft,
		Config: models.CampaignConfig{
			Steps: []models.DripStep{
				{StepIndex: 0, DelayDays: 0, Channel: models.MessageChannelSMS, TemplateID: &created.ID},
			},
			EnrollmentMode: models.EnrollmentModeManual,
		},
	}
	require.NoError(t, f.campaignRepo.Save(context.Background(), campaign))

	err := f.flow.DeleteTemplate(context.Background(), f.actor, created.UUID, nil)
	require.Error(t, err)
	assert.True(t, IsTemplateInUse(err))
}

func TestListTemplatesByChannel(t *testing.T) {
	f := newTemplateFixture(t)
	f.create(t, "sms-reminder")

	_, err := f.flow.CreateTemplate(context.Background(), f.actor, &dto.CreateTemplateRequest{
		Name:    "email-reminder",
		Channel: models.MessageChannelEmail.String(),
		Subject: utils.ToPtr("Your exam"),
		Body:    "Hi {{firstName}}",
	}, nil)
	require.NoError(t, err)

	email := models.MessageChannelEmail
	resp, err := f.flow.ListTemplates(context.Background(), &email)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "email-reminder", resp.Items[0].Name)

	resp, err = f.flow.ListTemplates(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
}
