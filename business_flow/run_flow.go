package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/app/services"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	campaignRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_runs_total",
		Help: "Campaign passes executed, by trigger and outcome",
	}, []string{"trigger", "status"})

	campaignMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_messages_total",
		Help: "Messages produced by campaign passes, by channel",
	}, []string{"channel"})
)

// RunFlow executes campaign passes
type RunFlow interface {
	// TriggerCampaignRun starts a pass on demand. Admin only.
	TriggerCampaignRun(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.TriggerCampaignRunResponse, error)

	// ProcessDueCampaigns runs a pass for every active campaign whose
	// next run time has arrived. The scheduler calls this on each tick.
	ProcessDueCampaigns(ctx context.Context) error

	// ProcessCampaign runs one pass for one campaign.
	ProcessCampaign(ctx context.Context, campaignID uint, trigger models.RunTrigger) (*models.CampaignRun, error)
}

// RunFlowImpl implements the run processing business flow
type RunFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	customerRepo  repository.CustomerRepository
	recipientRepo repository.CampaignRecipientRepository
	runRepo       repository.CampaignRunRepository
	messageRepo   repository.MessageRepository
	templateRepo  repository.MessageTemplateRepository
	orderRepo     repository.OrderRepository
	auditRepo     repository.AuditLogRepository
	dispatcher    services.Dispatcher
	db            *gorm.DB
}

// NewRunFlow creates a new run flow instance
func NewRunFlow(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	recipientRepo repository.CampaignRecipientRepository,
	runRepo repository.CampaignRunRepository,
	messageRepo repository.MessageRepository,
	templateRepo repository.MessageTemplateRepository,
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditLogRepository,
	dispatcher services.Dispatcher,
	db *gorm.DB,
) RunFlow {
	return &RunFlowImpl{
		campaignRepo:  campaignRepo,
		customerRepo:  customerRepo,
		recipientRepo: recipientRepo,
		runRepo:       runRepo,
		messageRepo:   messageRepo,
		templateRepo:  templateRepo,
		orderRepo:     orderRepo,
		auditRepo:     auditRepo,
		dispatcher:    dispatcher,
		db:            db,
	}
}

// TriggerCampaignRun starts a pass on demand. The role check happens
// before anything else so non-admin calls leave no trace beyond the
// audit entry.
func (s *RunFlowImpl) TriggerCampaignRun(ctx context.Context, actor Actor, campaignUUID string, metadata *ClientMetadata) (*dto.TriggerCampaignRunResponse, error) {
	if !actor.IsAdmin() {
		errMsg := "Admin only"
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignRun, "Manual run rejected: not an admin", false, &errMsg, metadata)
		return nil, NewBusinessError("ADMIN_ONLY", "Admin only", ErrAdminOnly)
	}

	campaign, err := getCampaignByUUID(ctx, s.campaignRepo, campaignUUID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusActive {
		return nil, NewBusinessError("CAMPAIGN_NOT_ACTIVE", "Only active campaigns can be run", ErrCampaignNotActive)
	}

	run, err := s.ProcessCampaign(ctx, campaign.ID, models.RunTriggerManual)
	if err != nil {
		errMsg := fmt.Sprintf("Manual run failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignRun, errMsg, false, &errMsg, metadata)

		if IsCampaignRunInProgress(err) {
			return nil, err
		}
		return nil, NewBusinessError("CAMPAIGN_RUN_FAILED", "Campaign run failed", err)
	}

	msg := fmt.Sprintf("Manual run of campaign %s: processed=%d sent=%d", campaign.UUID.String(), run.Processed, run.Sent)
	_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionCampaignRun, msg, true, nil, metadata)

	return &dto.TriggerCampaignRunResponse{
		Message: "Campaign run completed",
		Run:     ToRunDTO(*run),
	}, nil
}

// ProcessDueCampaigns runs a pass for every due campaign. Campaigns are
// processed independently; one failing does not stop the rest.
func (s *RunFlowImpl) ProcessDueCampaigns(ctx context.Context) error {
	due, err := s.campaignRepo.ListDue(ctx, utils.UTCNow())
	if err != nil {
		return fmt.Errorf("failed to list due campaigns: %w", err)
	}

	for _, campaign := range due {
		if _, err := s.ProcessCampaign(ctx, campaign.ID, models.RunTriggerScheduled); err != nil {
			// Skipped because a pass is already in flight, or failed
			// outright; either way the next tick retries.
			continue
		}
	}

	return nil
}

// ProcessCampaign executes one pass over a campaign's recipients. All
// recipients in the pass are judged against the same snapshot time, and
// each recipient advances at most one step.
func (s *RunFlowImpl) ProcessCampaign(ctx context.Context, campaignID uint, trigger models.RunTrigger) (*models.CampaignRun, error) {
	if !acquireRunLock(campaignID) {
		return nil, ErrCampaignRunInProgress
	}
	defer releaseRunLock(campaignID)

	campaign, err := s.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if campaign.Status != models.CampaignStatusActive {
		return nil, ErrCampaignNotActive
	}

	snapshotAt := utils.UTCNow()

	run := &models.CampaignRun{
		CampaignID: campaign.ID,
		Status:     models.RunStatusRunning,
		Trigger:    trigger,
		StartedAt:  snapshotAt,
	}
	if err := s.runRepo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	var jobs []dispatchJob

	if campaign.Config.EnrollmentMode == models.EnrollmentModeAuto {
		run.Enrolled = s.autoEnroll(ctx, campaign, snapshotAt)
	}

	recipients, err := s.recipientRepo.ListActiveByCampaign(ctx, campaign.ID)
	if err != nil {
		run.Finish(models.RunStatusFailed, utils.UTCNow())
		run.Error = utils.ToPtr(err.Error())
		_ = s.runRepo.Update(ctx, *run)
		campaignRunsTotal.WithLabelValues(string(trigger), string(models.RunStatusFailed)).Inc()
		return run, err
	}

	templates := make(map[uint]*models.MessageTemplate)

	for _, recipient := range recipients {
		run.Processed++

		job, outcome, err := s.processRecipient(ctx, campaign, run, recipient, snapshotAt, templates)
		if err != nil {
			run.Failed++
			run.FailedRecipientIDs = append(run.FailedRecipientIDs, int64(recipient.ID))
			continue
		}

		switch outcome {
		case outcomeConverted:
			run.Converted++
		case outcomeCompleted:
			run.Completed++
		case outcomeSent:
			run.Sent++
		case outcomeSentAndCompleted:
			run.Sent++
			run.Completed++
		}

		if job != nil {
			jobs = append(jobs, *job)
		}
	}

	run.Finish(models.RunStatusCompleted, utils.UTCNow())
	if err := s.runRepo.Update(ctx, *run); err != nil {
		return run, err
	}

	// The pass is booked; delivery happens in the background and only
	// flips individual message statuses.
	for _, job := range jobs {
		go s.dispatch(job)
	}

	if err := s.campaignRepo.UpdateNextRunAt(ctx, campaign.ID, utils.ToPtr(snapshotAt.Add(utils.RunCadence))); err != nil {
		return run, err
	}

	campaignRunsTotal.WithLabelValues(string(trigger), string(models.RunStatusCompleted)).Inc()
	return run, nil
}

type recipientOutcome int

const (
	outcomeNone recipientOutcome = iota
	outcomeConverted
	outcomeCompleted
	outcomeSent
	outcomeSentAndCompleted
)

type dispatchJob struct {
	MessageID   uint
	Channel     models.MessageChannel
	Destination string
	Subject     string
	Body        string
}

// processRecipient handles one recipient inside its own transaction so a
// failure is contained to that recipient.
func (s *RunFlowImpl) processRecipient(ctx context.Context, campaign *models.Campaign, run *models.CampaignRun, recipient *models.CampaignRecipient, snapshotAt time.Time, templates map[uint]*models.MessageTemplate) (*dispatchJob, recipientOutcome, error) {
	var (
		job     *dispatchJob
		outcome recipientOutcome
	)

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Conversion wins over any step that would otherwise be due.
		if campaign.Config.StopOnConversion {
			converted, err := hasConverted(txCtx, s.orderRepo, recipient, snapshotAt)
			if err != nil {
				return err
			}
			if converted {
				recipient.Terminate(models.RecipientStatusConverted, snapshotAt)
				outcome = outcomeConverted
				return s.recipientRepo.Update(txCtx, *recipient)
			}
		}

		decision := NextStep(campaign.Config, recipient, snapshotAt)

		if decision.Complete {
			recipient.Terminate(models.RecipientStatusCompleted, snapshotAt)
			outcome = outcomeCompleted
			return s.recipientRepo.Update(txCtx, *recipient)
		}

		if decision.Step == nil {
			outcome = outcomeNone
			return nil
		}

		step := decision.Step

		customer, err := s.customerRepo.ByID(txCtx, recipient.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}

		body, subject, err := s.resolveContent(txCtx, step, templates)
		if err != nil {
			return err
		}

		destination := customer.AddressFor(step.Channel)
		if destination == "" {
			return ErrNoDestinationAddress
		}

		rendered := RenderMessageBody(body, customer)

		message := &models.Message{
			CampaignID:  campaign.ID,
			RecipientID: recipient.ID,
			RunID:       &run.ID,
			StepIndex:   step.StepIndex,
			Channel:     step.Channel,
			Destination: destination,
			Body:        rendered,
			Status:      models.MessageStatusPending,
		}
		if err := s.messageRepo.Save(txCtx, message); err != nil {
			return err
		}

		recipient.LastStepIndex = step.StepIndex
		recipient.LastMessageAt = utils.ToPtr(utils.TimeToUTC(snapshotAt))

		// Sending the final step finishes the sequence in the same pass.
		if step.StepIndex >= campaign.Config.MaxStepIndex() {
			recipient.Terminate(models.RecipientStatusCompleted, snapshotAt)
			outcome = outcomeSentAndCompleted
		} else {
			outcome = outcomeSent
		}

		if err := s.recipientRepo.Update(txCtx, *recipient); err != nil {
			return err
		}

		job = &dispatchJob{
			MessageID:   message.ID,
			Channel:     step.Channel,
			Destination: destination,
			Subject:     RenderMessageBody(subject, customer),
			Body:        rendered,
		}
		campaignMessagesTotal.WithLabelValues(step.Channel.String()).Inc()
		return nil
	})

	if err != nil {
		return nil, outcomeNone, err
	}
	return job, outcome, nil
}

// resolveContent returns the raw body and subject for a step, loading
// referenced templates once per pass.
func (s *RunFlowImpl) resolveContent(ctx context.Context, step *models.DripStep, templates map[uint]*models.MessageTemplate) (string, string, error) {
	if step.TemplateID == nil {
		if step.Body == nil || *step.Body == "" {
			return "", "", ErrTemplateBodyRequired
		}
		return *step.Body, "", nil
	}

	template, ok := templates[*step.TemplateID]
	if !ok {
		var err error
		template, err = s.templateRepo.ByID(ctx, *step.TemplateID)
		if err != nil {
			return "", "", err
		}
		templates[*step.TemplateID] = template
	}

	if template == nil || template.IsDeleted() {
		return "", "", ErrTemplateNotFound
	}

	subject := ""
	if template.Subject != nil {
		subject = *template.Subject
	}
	return template.Body, subject, nil
}

// autoEnroll pulls current segment matches into the campaign. Customers
// blocked by cooldown or opt-out are skipped silently and the pass
// keeps going.
func (s *RunFlowImpl) autoEnroll(ctx context.Context, campaign *models.Campaign, now time.Time) int {
	customers, err := s.customerRepo.BySegment(ctx, campaign.Segment, 0, 0)
	if err != nil {
		return 0
	}

	enrolled := 0
	for _, customer := range customers {
		err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
			_, fresh, err := enrollRecipient(txCtx, s.recipientRepo, campaign, customer, now)
			if err != nil {
				return err
			}
			if fresh {
				enrolled++
			}
			return nil
		})
		_ = err
	}

	return enrolled
}

// dispatch delivers one message and records the outcome. Runs in its own
// goroutine; the pass that produced the message has already returned.
func (s *RunFlowImpl) dispatch(job dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.dispatcher.Send(ctx, job.Channel, job.Destination, job.Subject, job.Body)
	if err != nil {
		_ = s.messageRepo.MarkFailed(ctx, job.MessageID, err.Error())
		return
	}
	_ = s.messageRepo.MarkSent(ctx, job.MessageID, utils.UTCNow())
}
