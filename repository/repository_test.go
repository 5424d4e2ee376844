package repository_test

import (
	"testing"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	testingutil "github.com/clearlens/campaign-engine/testing"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCampaignRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
		require.NoError(t, err)

		t.Run("SaveAndByID", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)
			assert.NotZero(t, campaign.ID)

			loaded, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, campaign.Name, loaded.Name)
			assert.Equal(t, models.CampaignStatusDraft, loaded.Status)
			assert.Len(t, loaded.Config.Steps, 2)
			assert.True(t, loaded.Segment.ExcludeMarketingOptOut)
		})

		t.Run("ByUUID", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)

			loaded, err := repo.ByUUID(ctx, campaign.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, campaign.ID, loaded.ID)

			missing, err := repo.ByUUID(ctx, "11111111-2222-3333-4444-555555555555")
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ByFilterStatus", func(t *testing.T) {
			_, err := fixtures.CreateActiveCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)

			active := models.CampaignStatusActive
			campaigns, err := repo.ByFilter(ctx, models.CampaignFilter{Status: &active}, "", 0, 0)
			require.NoError(t, err)
			require.NotEmpty(t, campaigns)
			for _, c := range campaigns {
				assert.Equal(t, models.CampaignStatusActive, c.Status)
			}
		})

		t.Run("UpdateStatus", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)

			require.NoError(t, repo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusActive))

			loaded, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, models.CampaignStatusActive, loaded.Status)
		})

		t.Run("ListDue", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
			require.NoError(t, err)

			due, err := fixtures.CreateActiveCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)

			future, err := fixtures.CreateActiveCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)
			later := utils.UTCNow().Add(12 * time.Hour)
			require.NoError(t, repo.UpdateNextRunAt(ctx, future.ID, &later))

			// Draft campaigns are never due regardless of schedule.
			_, err = fixtures.CreateTestCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)

			campaigns, err := repo.ListDue(ctx, utils.UTCNow())
			require.NoError(t, err)
			require.Len(t, campaigns, 1)
			assert.Equal(t, due.ID, campaigns[0].ID)
		})

		t.Run("CountReferencingTemplate", func(t *testing.T) {
			staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
			require.NoError(t, err)
			template, err := fixtures.CreateTestTemplate(staff.ID, models.MessageChannelSMS)
			require.NoError(t, err)

			campaign, err := fixtures.CreateTestCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)
			campaign.Config = testingutil.DefaultDripConfig(&template.ID)
			require.NoError(t, repo.Update(ctx, *campaign))

			count, err := repo.CountReferencingTemplate(ctx, template.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			count, err = repo.CountReferencingTemplate(ctx, template.ID+1000)
			require.NoError(t, err)
			assert.Zero(t, count)
		})

		t.Run("Delete", func(t *testing.T) {
			staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(staff.ID, models.CampaignTypeDrip)
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, campaign.ID))

			loaded, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCustomerRepositorySegments(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCustomerRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		overdue, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(overdue).
			Update("last_exam_at", utils.UTCNow().Add(-400*24*time.Hour)).Error)

		recent, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(recent).
			Update("last_exam_at", utils.UTCNow().Add(-30*24*time.Hour)).Error)

		optedOut, err := fixtures.CreateOptedOutCustomer()
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(optedOut).
			Update("last_exam_at", utils.UTCNow().Add(-400*24*time.Hour)).Error)

		segment := testingutil.DefaultSegment()

		t.Run("CountBySegment", func(t *testing.T) {
			count, err := repo.CountBySegment(ctx, segment)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("BySegment", func(t *testing.T) {
			customers, err := repo.BySegment(ctx, segment, 10, 0)
			require.NoError(t, err)
			require.Len(t, customers, 1)
			assert.Equal(t, overdue.ID, customers[0].ID)
		})

		t.Run("BySegmentIncludesOptOutWhenAllowed", func(t *testing.T) {
			open := segment
			open.ExcludeMarketingOptOut = false

			count, err := repo.CountBySegment(ctx, open)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		t.Run("ByEmail", func(t *testing.T) {
			loaded, err := repo.ByEmail(ctx, *overdue.Email)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, overdue.ID, loaded.ID)

			missing, err := repo.ByEmail(ctx, "nobody@example.com")
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCampaignRecipientRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCampaignRecipientRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
		require.NoError(t, err)
		campaign, err := fixtures.CreateActiveCampaign(staff.ID, models.CampaignTypeDrip)
		require.NoError(t, err)

		first, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		second, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		enrolled, err := fixtures.EnrollTestRecipient(campaign.ID, first.ID, utils.UTCNow())
		require.NoError(t, err)

		converted, err := fixtures.EnrollTestRecipient(campaign.ID, second.ID, utils.UTCNow())
		require.NoError(t, err)
		converted.Terminate(models.RecipientStatusConverted, utils.UTCNow())
		require.NoError(t, repo.Update(ctx, *converted))

		t.Run("ByCampaignAndCustomer", func(t *testing.T) {
			loaded, err := repo.ByCampaignAndCustomer(ctx, campaign.ID, first.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, enrolled.ID, loaded.ID)

			missing, err := repo.ByCampaignAndCustomer(ctx, campaign.ID, first.ID+1000)
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ListActiveByCampaign", func(t *testing.T) {
			active, err := repo.ListActiveByCampaign(ctx, campaign.ID)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, first.ID, active[0].CustomerID)
		})

		t.Run("CountByStatus", func(t *testing.T) {
			counts, err := repo.CountByStatus(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), counts[models.RecipientStatusActive])
			assert.Equal(t, int64(1), counts[models.RecipientStatusConverted])
		})

		t.Run("UniquePerCampaignAndCustomer", func(t *testing.T) {
			_, err := fixtures.EnrollTestRecipient(campaign.ID, first.ID, utils.UTCNow())
			assert.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestOrderRepositoryConversionWindow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewOrderRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		now := utils.UTCNow()
		windowStart := now.Add(-7 * 24 * time.Hour)

		t.Run("NoOrders", func(t *testing.T) {
			found, err := repo.HasOrderInWindow(ctx, customer.ID, windowStart, now)
			require.NoError(t, err)
			assert.False(t, found)
		})

		t.Run("OrderBeforeWindow", func(t *testing.T) {
			_, err := fixtures.CreateTestOrder(customer.ID, models.OrderStatusPlaced, windowStart.Add(-time.Hour))
			require.NoError(t, err)

			found, err := repo.HasOrderInWindow(ctx, customer.ID, windowStart, now)
			require.NoError(t, err)
			assert.False(t, found)
		})

		t.Run("CancelledOrderIgnored", func(t *testing.T) {
			_, err := fixtures.CreateTestOrder(customer.ID, models.OrderStatusCancelled, now.Add(-time.Hour))
			require.NoError(t, err)

			found, err := repo.HasOrderInWindow(ctx, customer.ID, windowStart, now)
			require.NoError(t, err)
			assert.False(t, found)
		})

		t.Run("OrderInWindow", func(t *testing.T) {
			_, err := fixtures.CreateTestOrder(customer.ID, models.OrderStatusPlaced, now.Add(-2*time.Hour))
			require.NoError(t, err)

			found, err := repo.HasOrderInWindow(ctx, customer.ID, windowStart, now)
			require.NoError(t, err)
			assert.True(t, found)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestMessageRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewMessageRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
		require.NoError(t, err)
		campaign, err := fixtures.CreateActiveCampaign(staff.ID, models.CampaignTypeDrip)
		require.NoError(t, err)
		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		recipient, err := fixtures.EnrollTestRecipient(campaign.ID, customer.ID, utils.UTCNow())
		require.NoError(t, err)

		message := &models.Message{
			CampaignID:  campaign.ID,
			RecipientID: recipient.ID,
			StepIndex:   0,
			Channel:     models.MessageChannelSMS,
			Destination: *customer.Phone,
			Body:        "Hi Jordan, time to schedule your annual eye exam.",
		}
		require.NoError(t, repo.Save(ctx, message))
		assert.Equal(t, models.MessageStatusPending, message.Status)

		t.Run("MarkSent", func(t *testing.T) {
			sentAt := utils.UTCNow()
			require.NoError(t, repo.MarkSent(ctx, message.ID, sentAt))

			loaded, err := repo.ByID(ctx, message.ID)
			require.NoError(t, err)
			assert.Equal(t, models.MessageStatusSent, loaded.Status)
			require.NotNil(t, loaded.SentAt)
		})

		t.Run("MarkFailed", func(t *testing.T) {
			failing := &models.Message{
				CampaignID:  campaign.ID,
				RecipientID: recipient.ID,
				StepIndex:   1,
				Channel:     models.MessageChannelSMS,
				Destination: *customer.Phone,
				Body:        "Hi Jordan, just a reminder.",
			}
			require.NoError(t, repo.Save(ctx, failing))
			require.NoError(t, repo.MarkFailed(ctx, failing.ID, "provider timeout"))

			loaded, err := repo.ByID(ctx, failing.ID)
			require.NoError(t, err)
			assert.Equal(t, models.MessageStatusFailed, loaded.Status)
			require.NotNil(t, loaded.FailReason)
			assert.Equal(t, "provider timeout", *loaded.FailReason)
		})

		t.Run("CountByStatus", func(t *testing.T) {
			counts, err := repo.CountByStatus(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), counts[models.MessageStatusSent])
			assert.Equal(t, int64(1), counts[models.MessageStatusFailed])
		})

		t.Run("ListByRecipient", func(t *testing.T) {
			messages, err := repo.ListByRecipient(ctx, recipient.ID)
			require.NoError(t, err)
			assert.Len(t, messages, 2)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCampaignRunRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCampaignRunRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
		require.NoError(t, err)
		campaign, err := fixtures.CreateActiveCampaign(staff.ID, models.CampaignTypeDrip)
		require.NoError(t, err)

		base := utils.UTCNow().Add(-3 * time.Hour)
		for i := 0; i < 3; i++ {
			run := &models.CampaignRun{
				CampaignID: campaign.ID,
				Trigger:    models.RunTriggerScheduled,
				StartedAt:  base.Add(time.Duration(i) * time.Hour),
			}
			require.NoError(t, repo.Save(ctx, run))

			run.Status = models.RunStatusCompleted
			run.FinishedAt = utils.UTCNowPtr()
			run.Processed = i + 1
			require.NoError(t, repo.Update(ctx, *run))
		}

		t.Run("ListByCampaignNewestFirst", func(t *testing.T) {
			runs, err := repo.ListByCampaign(ctx, campaign.ID, 2, 0)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
		})

		t.Run("Pagination", func(t *testing.T) {
			runs, err := repo.ListByCampaign(ctx, campaign.ID, 2, 2)
			require.NoError(t, err)
			assert.Len(t, runs, 1)
		})

		t.Run("LatestByCampaign", func(t *testing.T) {
			latest, err := repo.LatestByCampaign(ctx, campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, 3, latest.Processed)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestMessageTemplateRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewMessageTemplateRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		staff, err := fixtures.CreateTestStaff(models.StaffRoleStaff)
		require.NoError(t, err)
		template, err := fixtures.CreateTestTemplate(staff.ID, models.MessageChannelSMS)
		require.NoError(t, err)

		t.Run("ByName", func(t *testing.T) {
			loaded, err := repo.ByName(ctx, template.Name)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, template.ID, loaded.ID)
		})

		t.Run("SoftDeleteHidesFromLookups", func(t *testing.T) {
			require.NoError(t, repo.SoftDelete(ctx, template.ID, utils.UTCNow()))

			loaded, err := repo.ByName(ctx, template.Name)
			require.NoError(t, err)
			assert.Nil(t, loaded)

			templates, err := repo.ByFilter(ctx, models.MessageTemplateFilter{IncludeDeleted: true}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, templates, 1)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestStaffRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewStaffRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		staff, err := fixtures.CreateTestStaff(models.StaffRoleStaff)
		require.NoError(t, err)

		t.Run("ByEmail", func(t *testing.T) {
			loaded, err := repo.ByEmail(ctx, staff.Email)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, staff.ID, loaded.ID)
		})

		t.Run("UpdateLastLogin", func(t *testing.T) {
			loginAt := utils.UTCNow()
			require.NoError(t, repo.UpdateLastLogin(ctx, staff.ID, loginAt))

			loaded, err := repo.ByID(ctx, staff.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded.LastLoginAt)
			assert.WithinDuration(t, loginAt, *loaded.LastLoginAt, time.Second)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAuditLogRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		staff, err := fixtures.CreateTestStaff(models.StaffRoleAdmin)
		require.NoError(t, err)

		_, err = fixtures.CreateTestAuditLog(&staff.ID, models.AuditActionCampaignCreated, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&staff.ID, models.AuditActionCampaignRun, false)
		require.NoError(t, err)

		t.Run("ListByAction", func(t *testing.T) {
			entries, err := repo.ListByAction(ctx, models.AuditActionCampaignCreated, 10, 0)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, models.AuditActionCampaignCreated, entries[0].Action)
		})

		t.Run("ListFailedActions", func(t *testing.T) {
			entries, err := repo.ListFailedActions(ctx, 10, 0)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, models.AuditActionCampaignRun, entries[0].Action)
		})

		t.Run("ListByStaff", func(t *testing.T) {
			entries, err := repo.ListByStaff(ctx, staff.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})

		return nil
	})
	require.NoError(t, err)
}
