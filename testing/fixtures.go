// Package testing provides test utilities and database setup for testing the campaign engine
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestStaff creates a staff member with the given role and a known password
func (tf *TestFixtures) CreateTestStaff(role models.StaffRole) (*models.Staff, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%08d", rand.Intn(90000000)+10000000)

	staff := &models.Staff{
		FirstName:    "Dana",
		LastName:     "Whitfield",
		Email:        fmt.Sprintf("dana.whitfield.%s@clearlens.io", randomDigits),
		PasswordHash: string(hashedPassword),
		Role:         role,
		IsActive:     true,
	}

	if err := tf.DB.DB.Create(staff).Error; err != nil {
		return nil, fmt.Errorf("failed to create test staff: %w", err)
	}

	return staff, nil
}

// CreateTestCustomer creates a customer with random contact details
func (tf *TestFixtures) CreateTestCustomer() (*models.Customer, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	customer := &models.Customer{
		FirstName:       "Jordan",
		LastName:        "Reyes",
		Email:           utils.ToPtr(fmt.Sprintf("jordan.reyes.%s@example.com", randomDigits)),
		Phone:           utils.ToPtr(fmt.Sprintf("+1555%s", randomDigits[:7])),
		City:            utils.ToPtr("Portland"),
		BirthYear:       utils.ToPtr(1988),
		MarketingOptOut: false,
		IsActive:        true,
	}

	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}

	return customer, nil
}

// CreateOptedOutCustomer creates a customer who has opted out of marketing
func (tf *TestFixtures) CreateOptedOutCustomer() (*models.Customer, error) {
	customer, err := tf.CreateTestCustomer()
	if err != nil {
		return nil, err
	}

	customer.MarketingOptOut = true
	if err := tf.DB.DB.Save(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to opt out test customer: %w", err)
	}

	return customer, nil
}

// CreateTestOrder creates an order for the customer placed at the given time
func (tf *TestFixtures) CreateTestOrder(customerID uint, status models.OrderStatus, placedAt time.Time) (*models.Order, error) {
	order := &models.Order{
		CustomerID: customerID,
		Status:     status,
		TotalCents: int64(rand.Intn(90000) + 10000),
		PlacedAt:   placedAt,
	}

	if err := tf.DB.DB.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create test order: %w", err)
	}

	return order, nil
}

// CreateTestTemplate creates a message template owned by the given staff member
func (tf *TestFixtures) CreateTestTemplate(createdBy uint, channel models.MessageChannel) (*models.MessageTemplate, error) {
	template := &models.MessageTemplate{
		Name:      fmt.Sprintf("exam-reminder-%d", rand.Intn(10000000)),
		Channel:   channel,
		Body:      "Hi {{firstName}}, it has been a while since your last eye exam. Book a visit with us!",
		CreatedBy: createdBy,
	}
	if channel == models.MessageChannelEmail {
		template.Subject = utils.ToPtr("Time for your next eye exam")
	}

	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}

	return template, nil
}

// DefaultSegment returns a segment matching customers without a recent exam
func DefaultSegment() models.SegmentConfig {
	return models.SegmentConfig{
		Logic: models.SegmentLogicAnd,
		Conditions: []models.SegmentCondition{
			{Field: "last_exam_at", Operator: models.SegmentOpOlderThanDays, Value: 365},
		},
		ExcludeMarketingOptOut: true,
	}
}

// DefaultDripConfig returns a two step drip configuration. When a template ID
// is given the first step renders from it, otherwise both steps use inline
// bodies.
func DefaultDripConfig(templateID *uint) models.CampaignConfig {
	firstStep := models.DripStep{
		StepIndex: 0,
		DelayDays: 0,
		Channel:   models.MessageChannelSMS,
	}
	if templateID != nil {
		firstStep.TemplateID = templateID
	} else {
		firstStep.Body = utils.ToPtr("Hi {{firstName}}, time to schedule your annual eye exam.")
	}

	return models.CampaignConfig{
		Steps: []models.DripStep{
			firstStep,
			{
				StepIndex: 1,
				DelayDays: 7,
				Channel:   models.MessageChannelSMS,
				Body:      utils.ToPtr("Hi {{firstName}}, just a reminder that your eyes deserve a check-up."),
			},
		},
		StopOnConversion: true,
		CooldownDays:     90,
		EnrollmentMode:   models.EnrollmentModeManual,
	}
}

// CreateTestCampaign creates a draft campaign with a default segment and drip plan
func (tf *TestFixtures) CreateTestCampaign(createdBy uint, campaignType models.CampaignType) (*models.Campaign, error) {
	campaign := &models.Campaign{
		Name:        fmt.Sprintf("lapsed-exam-winback-%d", rand.Intn(10000000)),
		Description: utils.ToPtr("Re-engage customers overdue for an eye exam"),
		Type:        campaignType,
		Status:      models.CampaignStatusDraft,
		Segment:     DefaultSegment(),
		Config:      DefaultDripConfig(nil),
		CreatedBy:   createdBy,
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateActiveCampaign creates a campaign already activated and due to run
func (tf *TestFixtures) CreateActiveCampaign(createdBy uint, campaignType models.CampaignType) (*models.Campaign, error) {
	campaign, err := tf.CreateTestCampaign(createdBy, campaignType)
	if err != nil {
		return nil, err
	}

	campaign.Status = models.CampaignStatusActive
	campaign.NextRunAt = utils.ToPtr(utils.UTCNow().Add(-time.Minute))
	if err := tf.DB.DB.Save(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to activate test campaign: %w", err)
	}

	return campaign, nil
}

// EnrollTestRecipient enrolls the customer into the campaign at the given time
func (tf *TestFixtures) EnrollTestRecipient(campaignID, customerID uint, enrolledAt time.Time) (*models.CampaignRecipient, error) {
	recipient := &models.CampaignRecipient{
		CampaignID:    campaignID,
		CustomerID:    customerID,
		Status:        models.RecipientStatusActive,
		EnrolledAt:    enrolledAt,
		LastStepIndex: -1,
	}

	if err := tf.DB.DB.Create(recipient).Error; err != nil {
		return nil, fmt.Errorf("failed to enroll test recipient: %w", err)
	}

	return recipient, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(staffID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		StaffID:     staffID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
