package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	"github.com/clearlens/campaign-engine/utils"
	"gorm.io/gorm"
)

// EnrollmentFlow handles recipient management for campaigns
type EnrollmentFlow interface {
	EnrollCustomer(ctx context.Context, actor Actor, req *dto.EnrollCustomerRequest, metadata *ClientMetadata) (*dto.EnrollCustomerResponse, error)
	RemoveRecipient(ctx context.Context, actor Actor, req *dto.RemoveRecipientRequest, metadata *ClientMetadata) (*dto.RemoveRecipientResponse, error)
	ListRecipients(ctx context.Context, actor Actor, req *dto.ListRecipientsRequest, metadata *ClientMetadata) (*dto.ListRecipientsResponse, error)
}

// EnrollmentFlowImpl implements the enrollment business flow
type EnrollmentFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	customerRepo  repository.CustomerRepository
	recipientRepo repository.CampaignRecipientRepository
	auditRepo     repository.AuditLogRepository
	db            *gorm.DB
}

// NewEnrollmentFlow creates a new enrollment flow instance
func NewEnrollmentFlow(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	recipientRepo repository.CampaignRecipientRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) EnrollmentFlow {
	return &EnrollmentFlowImpl{
		campaignRepo:  campaignRepo,
		customerRepo:  customerRepo,
		recipientRepo: recipientRepo,
		auditRepo:     auditRepo,
		db:            db,
	}
}

// EnrollCustomer enrolls one customer into a campaign. Enrolling an
// already-active recipient is a no-op; re-enrolling a terminated one is
// gated by the campaign's cooldown.
func (s *EnrollmentFlowImpl) EnrollCustomer(ctx context.Context, actor Actor, req *dto.EnrollCustomerRequest, metadata *ClientMetadata) (*dto.EnrollCustomerResponse, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.CampaignUUID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.ByID(ctx, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}
	if customer == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}

	var recipient *models.CampaignRecipient

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		recipient, _, err = enrollRecipient(txCtx, s.recipientRepo, campaign, customer, utils.UTCNow())
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Enrollment failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionRecipientEnrolled, errMsg, false, &errMsg, metadata)

		if IsCooldownNotElapsed(err) || IsCustomerOptedOut(err) || IsCampaignArchived(err) {
			return nil, err
		}
		return nil, NewBusinessError("ENROLLMENT_FAILED", "Enrollment failed", err)
	}

	msg := fmt.Sprintf("Customer %d enrolled in campaign %s", customer.ID, campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionRecipientEnrolled, msg, true, nil, metadata)

	return &dto.EnrollCustomerResponse{
		Message:   "Customer enrolled successfully",
		Recipient: ToRecipientDTO(*recipient),
	}, nil
}

// RemoveRecipient removes a customer from a campaign. Removal is a
// terminal status; the recipient receives no further steps.
func (s *EnrollmentFlowImpl) RemoveRecipient(ctx context.Context, actor Actor, req *dto.RemoveRecipientRequest, metadata *ClientMetadata) (*dto.RemoveRecipientResponse, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.CampaignUUID)
	if err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		recipient, err := s.recipientRepo.ByCampaignAndCustomer(txCtx, campaign.ID, req.CustomerID)
		if err != nil {
			return err
		}
		if recipient == nil {
			return ErrRecipientNotFound
		}
		if recipient.Status.Terminal() {
			return ErrRecipientTerminated
		}

		recipient.Terminate(models.RecipientStatusRemoved, utils.UTCNow())
		return s.recipientRepo.Update(txCtx, *recipient)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Recipient removal failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionRecipientRemoved, errMsg, false, &errMsg, metadata)

		if IsRecipientNotFound(err) || IsRecipientTerminated(err) {
			return nil, err
		}
		return nil, NewBusinessError("RECIPIENT_REMOVAL_FAILED", "Recipient removal failed", err)
	}

	msg := fmt.Sprintf("Customer %d removed from campaign %s", req.CustomerID, campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionRecipientRemoved, msg, true, nil, metadata)

	return &dto.RemoveRecipientResponse{Message: "Recipient removed successfully"}, nil
}

// ListRecipients lists a campaign's recipients with optional status filtering
func (s *EnrollmentFlowImpl) ListRecipients(ctx context.Context, actor Actor, req *dto.ListRecipientsRequest, metadata *ClientMetadata) (*dto.ListRecipientsResponse, error) {
	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, req.CampaignUUID)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignRecipientFilter{CampaignID: &campaign.ID}
	if req.Status != nil {
		status := models.RecipientStatus(*req.Status)
		filter.Status = &status
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = 50
	}

	recipients, err := s.recipientRepo.ByFilter(ctx, filter, "enrolled_at ASC", limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_FAILED", "Failed to list recipients", err)
	}

	total, err := s.recipientRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_FAILED", "Failed to count recipients", err)
	}

	resp := &dto.ListRecipientsResponse{Total: total}
	for _, recipient := range recipients {
		resp.Items = append(resp.Items, ToRecipientDTO(*recipient))
	}
	return resp, nil
}

// enrollRecipient applies the enrollment rules for one (campaign,
// customer) pair and returns the resulting row. The second return is
// true when a step-eligible enrollment actually happened, false for the
// idempotent already-active case.
func enrollRecipient(ctx context.Context, recipientRepo repository.CampaignRecipientRepository, campaign *models.Campaign, customer *models.Customer, now time.Time) (*models.CampaignRecipient, bool, error) {
	if campaign.Status == models.CampaignStatusArchived {
		return nil, false, ErrCampaignArchived
	}
	if customer.MarketingOptOut {
		return nil, false, ErrCustomerOptedOut
	}

	existing, err := recipientRepo.ByCampaignAndCustomer(ctx, campaign.ID, customer.ID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		recipient := &models.CampaignRecipient{
			CampaignID:    campaign.ID,
			CustomerID:    customer.ID,
			Status:        models.RecipientStatusActive,
			EnrolledAt:    utils.TimeToUTC(now),
			LastStepIndex: -1,
		}
		if err := recipientRepo.Save(ctx, recipient); err != nil {
			return nil, false, err
		}
		return recipient, true, nil
	}

	if existing.Status == models.RecipientStatusActive {
		return existing, false, nil
	}

	if !existing.CooldownElapsed(campaign.Config.CooldownDays, now) {
		return nil, false, ErrCooldownNotElapsed
	}

	// Re-enrollment resets progress; the sequence starts over from a
	// fresh enrollment time.
	existing.Status = models.RecipientStatusActive
	existing.EnrolledAt = utils.TimeToUTC(now)
	existing.LastStepIndex = -1
	existing.LastMessageAt = nil
	existing.TerminatedAt = nil
	if err := recipientRepo.Update(ctx, *existing); err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// getCampaignByUUID resolves a campaign or returns the standard
// not-found business error.
func getCampaignByUUID(ctx context.Context, campaignRepo repository.CampaignRepository, rawUUID string) (*models.Campaign, error) {
	campaign, err := campaignRepo.ByUUID(ctx, rawUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	return campaign, nil
}
