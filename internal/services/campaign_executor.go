package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
	"github.com/crediflow/crm-backend/pkg/apperrors"
)

// messageSender is the slice of MessageService the executor needs
type messageSender interface {
	SendMessage(ctx context.Context, input SendMessageInput) (*SendOutcome, error)
}

// RetryScheduler hands failed sends over to the retry manager
type RetryScheduler interface {
	ScheduleRetry(ctx context.Context, messageID, contactID, campaignID primitive.ObjectID, lastError string) error
}

// CampaignExecutor drives the campaign state machine. It owns at most one
// dispatch loop per campaign; pause, resume and cancel requests resolve
// against that single loop. Counters and dispatch records are mutated only
// here and by the retry path.
type CampaignExecutor struct {
	campaignRepo  repositories.CampaignRepository
	recipientRepo repositories.RecipientRepository
	templateRepo  repositories.TemplateRepository
	sender        messageSender
	retries       RetryScheduler

	batchSize         int
	messagesPerMinute int

	running *loopGuard

	// pace waits between batches; replaced in tests to avoid sleeping
	pace func(ctx context.Context, d time.Duration)
}

// NewCampaignExecutor creates a new CampaignExecutor
func NewCampaignExecutor(
	campaignRepo repositories.CampaignRepository,
	recipientRepo repositories.RecipientRepository,
	templateRepo repositories.TemplateRepository,
	sender messageSender,
	retries RetryScheduler,
	batchSize int,
	messagesPerMinute int,
) *CampaignExecutor {
	if batchSize <= 0 {
		batchSize = 25
	}
	if messagesPerMinute <= 0 {
		messagesPerMinute = 60
	}
	return &CampaignExecutor{
		campaignRepo:      campaignRepo,
		recipientRepo:     recipientRepo,
		templateRepo:      templateRepo,
		sender:            sender,
		retries:           retries,
		batchSize:         batchSize,
		messagesPerMinute: messagesPerMinute,
		running:           newLoopGuard(),
		pace:              sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// CreateCampaign persists a new campaign in DRAFT
func (s *CampaignExecutor) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	if campaign.Name == "" {
		return apperrors.NewValidation("name", "campaign name is required")
	}
	if campaign.MessageBody == "" && campaign.TemplateName == "" {
		return apperrors.NewValidation("message", "either messageBody or templateName is required")
	}
	if campaign.MessagesPerMinute <= 0 {
		campaign.MessagesPerMinute = s.messagesPerMinute
	}
	campaign.Status = models.CampaignStatusDraft
	if !campaign.ScheduledAt.IsZero() {
		campaign.Status = models.CampaignStatusScheduled
	}
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = time.Now()
	return s.campaignRepo.Create(ctx, campaign)
}

// GetCampaign loads one campaign
func (s *CampaignExecutor) GetCampaign(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("campaign", id.Hex())
		}
		return nil, err
	}
	return campaign, nil
}

// ListCampaigns returns campaigns with pagination
func (s *CampaignExecutor) ListCampaigns(ctx context.Context, page, limit int) ([]*models.Campaign, error) {
	return s.campaignRepo.FindAll(ctx, page, limit)
}

// AddRecipients attaches contacts to a campaign in stable dispatch order.
// Only allowed before execution starts; duplicates are silently skipped.
func (s *CampaignExecutor) AddRecipients(ctx context.Context, campaignID primitive.ObjectID, contactIDs []primitive.ObjectID) (int, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusScheduled {
		return 0, apperrors.NewPrecondition("recipients can only be added before execution")
	}

	position, err := s.recipientRepo.NextPosition(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("failed to determine dispatch position: %w", err)
	}

	recipients := make([]*models.CampaignRecipient, 0, len(contactIDs))
	for i, contactID := range contactIDs {
		recipients = append(recipients, &models.CampaignRecipient{
			CampaignID: campaignID,
			ContactID:  contactID,
			Position:   position + i,
			Status:     models.RecipientStatusPending,
			UpdatedAt:  time.Now(),
		})
	}
	if err := s.recipientRepo.CreateMany(ctx, recipients); err != nil {
		return 0, fmt.Errorf("failed to attach recipients: %w", err)
	}
	return len(recipients), nil
}

// ExecuteCampaign validates preconditions, moves the campaign to RUNNING and
// starts its dispatch loop. Valid only from DRAFT or SCHEDULED. Template
// campaigns are rejected before touching any recipient unless the named
// template exists and is APPROVED.
func (s *CampaignExecutor) ExecuteCampaign(ctx context.Context, id primitive.ObjectID) error {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusScheduled {
		return apperrors.NewPrecondition(fmt.Sprintf("campaign cannot be executed from status %s", campaign.Status))
	}

	if campaign.IsTemplated() {
		template, err := s.templateRepo.FindByName(ctx, campaign.TemplateName)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return apperrors.NewPrecondition(fmt.Sprintf("template %q does not exist", campaign.TemplateName))
			}
			return fmt.Errorf("failed to load template: %w", err)
		}
		if template.Status != models.TemplateStatusApproved {
			return apperrors.NewPrecondition(fmt.Sprintf("template %q is not approved", campaign.TemplateName))
		}
	}

	total, err := s.recipientRepo.CountByCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count recipients: %w", err)
	}

	if !s.running.acquire(id) {
		return apperrors.NewPrecondition("campaign dispatch loop already active")
	}

	ok, err := s.campaignRepo.UpdateStatus(ctx, id,
		[]models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled},
		models.CampaignStatusRunning)
	if err != nil {
		s.running.release(id)
		return fmt.Errorf("failed to transition campaign: %w", err)
	}
	if !ok {
		s.running.release(id)
		return apperrors.NewPrecondition("campaign state changed concurrently")
	}

	if err := s.campaignRepo.SetExecutionStart(ctx, id, int(total), time.Now()); err != nil {
		s.running.release(id)
		return fmt.Errorf("failed to initialise campaign counters: %w", err)
	}

	log.Printf("[CampaignExecutor] campaign %s running with %d recipients", id.Hex(), total)
	go s.runDispatchLoop(id)
	return nil
}

// ExecuteDueScheduled starts every SCHEDULED campaign whose scheduled time
// has arrived at the given instant. Campaigns that fail their execution
// preconditions are skipped and stay due for the next sweep. Returns the IDs
// of the campaigns started.
func (s *CampaignExecutor) ExecuteDueScheduled(ctx context.Context, now time.Time) ([]primitive.ObjectID, error) {
	scheduled, err := s.campaignRepo.FindByStatus(ctx, models.CampaignStatusScheduled, 1, scheduledSweepLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled campaigns: %w", err)
	}

	started := make([]primitive.ObjectID, 0, len(scheduled))
	for _, campaign := range scheduled {
		if campaign.ScheduledAt.After(now) {
			continue
		}
		if err := s.ExecuteCampaign(ctx, campaign.ID); err != nil {
			log.Printf("[CampaignExecutor] campaign %s: scheduled start failed: %v", campaign.ID.Hex(), err)
			continue
		}
		started = append(started, campaign.ID)
	}
	return started, nil
}

const scheduledSweepLimit = 100

// runDispatchLoop owns the guard slot for the campaign until it returns.
// After each halt the status is re-checked: a resume that landed while this
// loop was winding down could not start a replacement, so the old loop takes
// over instead of exiting.
func (s *CampaignExecutor) runDispatchLoop(id primitive.ObjectID) {
	for {
		s.dispatchBatches(id)
		s.running.release(id)

		campaign, err := s.campaignRepo.FindByID(context.Background(), id)
		if err != nil || campaign.Status != models.CampaignStatusRunning {
			return
		}
		if !s.running.acquire(id) {
			return
		}
	}
}

// dispatchBatches processes pending recipients in fixed-size batches with a
// pacing delay between batches. Pause and cancel signals are observed between
// batches; an in-flight send always completes and is recorded first.
func (s *CampaignExecutor) dispatchBatches(id primitive.ObjectID) {
	ctx := context.Background()

	for {
		campaign, err := s.campaignRepo.FindByID(ctx, id)
		if err != nil {
			log.Printf("[CampaignExecutor] campaign %s: failed to reload: %v", id.Hex(), err)
			return
		}
		if campaign.Status != models.CampaignStatusRunning {
			log.Printf("[CampaignExecutor] campaign %s: dispatch halted in status %s", id.Hex(), campaign.Status)
			return
		}

		batch, err := s.recipientRepo.FindPending(ctx, id, s.batchSize)
		if err != nil {
			log.Printf("[CampaignExecutor] campaign %s: failed to load batch: %v", id.Hex(), err)
			return
		}
		if len(batch) == 0 {
			ok, err := s.campaignRepo.UpdateStatus(ctx, id,
				[]models.CampaignStatus{models.CampaignStatusRunning},
				models.CampaignStatusCompleted)
			if err != nil {
				log.Printf("[CampaignExecutor] campaign %s: failed to complete: %v", id.Hex(), err)
				return
			}
			if ok {
				_ = s.campaignRepo.SetCompleted(ctx, id, time.Now())
				log.Printf("[CampaignExecutor] campaign %s completed", id.Hex())
			}
			return
		}

		for _, recipient := range batch {
			if halted := s.sendToRecipient(ctx, campaign, recipient); halted {
				return
			}
		}

		if len(batch) == s.batchSize {
			s.pace(ctx, s.batchDelay(campaign))
		}
	}
}

// sendToRecipient performs one send and records the outcome. Returns true
// when the loop must halt (gateway configuration failure).
func (s *CampaignExecutor) sendToRecipient(ctx context.Context, campaign *models.Campaign, recipient *models.CampaignRecipient) bool {
	outcome, err := s.sender.SendMessage(ctx, SendMessageInput{
		ContactID:    recipient.ContactID,
		CampaignID:   campaign.ID,
		Channel:      campaign.Channel,
		Body:         campaign.MessageBody,
		TemplateName: campaign.TemplateName,
		Params:       campaign.TemplateParams,
		MediaURL:     campaign.MediaURL,
		MediaType:    campaign.MediaType,
		SentBy:       campaign.CreatedBy,
	})
	if err != nil {
		if apperrors.IsConfiguration(err) {
			// Nothing will send until the operator fixes credentials;
			// pause rather than burn through the recipient list.
			log.Printf("[CampaignExecutor] campaign %s: gateway misconfigured, pausing: %v", campaign.ID.Hex(), err)
			_, _ = s.campaignRepo.UpdateStatus(ctx, campaign.ID,
				[]models.CampaignStatus{models.CampaignStatusRunning},
				models.CampaignStatusPaused)
			return true
		}

		// Missing or inactive contact: permanent per-recipient failure,
		// no retry scheduled.
		if updateErr := s.recipientRepo.UpdateStatus(ctx, recipient.ID, models.RecipientStatusFailed, primitive.NilObjectID, err.Error()); updateErr != nil {
			log.Printf("[CampaignExecutor] campaign %s: failed to record recipient failure: %v", campaign.ID.Hex(), updateErr)
		}
		if incErr := s.campaignRepo.IncrementCounters(ctx, campaign.ID, 0, 0, 1, -1); incErr != nil {
			log.Printf("[CampaignExecutor] campaign %s: failed to bump counters: %v", campaign.ID.Hex(), incErr)
		}
		return false
	}

	if outcome.Success {
		if err := s.recipientRepo.UpdateStatus(ctx, recipient.ID, models.RecipientStatusSent, outcome.MessageID, ""); err != nil {
			log.Printf("[CampaignExecutor] campaign %s: failed to record recipient send: %v", campaign.ID.Hex(), err)
		}
		if err := s.campaignRepo.IncrementCounters(ctx, campaign.ID, 1, 0, 0, -1); err != nil {
			log.Printf("[CampaignExecutor] campaign %s: failed to bump counters: %v", campaign.ID.Hex(), err)
		}
		return false
	}

	if err := s.recipientRepo.UpdateStatus(ctx, recipient.ID, models.RecipientStatusFailed, outcome.MessageID, outcome.ErrorDetail); err != nil {
		log.Printf("[CampaignExecutor] campaign %s: failed to record recipient failure: %v", campaign.ID.Hex(), err)
	}
	if err := s.campaignRepo.IncrementCounters(ctx, campaign.ID, 0, 0, 1, -1); err != nil {
		log.Printf("[CampaignExecutor] campaign %s: failed to bump counters: %v", campaign.ID.Hex(), err)
	}
	if err := s.retries.ScheduleRetry(ctx, outcome.MessageID, recipient.ContactID, campaign.ID, outcome.ErrorDetail); err != nil {
		log.Printf("[CampaignExecutor] campaign %s: failed to schedule retry: %v", campaign.ID.Hex(), err)
	}
	return false
}

func (s *CampaignExecutor) batchDelay(campaign *models.Campaign) time.Duration {
	mpm := campaign.MessagesPerMinute
	if mpm <= 0 {
		mpm = s.messagesPerMinute
	}
	return time.Duration(float64(s.batchSize) / float64(mpm) * float64(time.Minute))
}

// PauseCampaign halts further batch dispatch. Valid only from RUNNING;
// returns false as a no-op for any other state. In-flight sends complete.
func (s *CampaignExecutor) PauseCampaign(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.campaignRepo.UpdateStatus(ctx, id,
		[]models.CampaignStatus{models.CampaignStatusRunning},
		models.CampaignStatusPaused)
}

// ResumeCampaign resumes dispatch from the first still-pending recipient.
// Valid only from PAUSED; already-sent recipients are never re-sent.
func (s *CampaignExecutor) ResumeCampaign(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ok, err := s.campaignRepo.UpdateStatus(ctx, id,
		[]models.CampaignStatus{models.CampaignStatusPaused},
		models.CampaignStatusRunning)
	if err != nil || !ok {
		return ok, err
	}

	// A loop drained by pause may still be winding down while holding the
	// guard; it re-checks the status after releasing and carries on itself.
	// Start a fresh loop only when none is active.
	if s.running.acquire(id) {
		go s.runDispatchLoop(id)
	}
	return true, nil
}

// CancelCampaign aborts a campaign from RUNNING or PAUSED. Remaining pending
// recipients stay PENDING; the campaign is terminal and will not resume.
func (s *CampaignExecutor) CancelCampaign(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.campaignRepo.UpdateStatus(ctx, id,
		[]models.CampaignStatus{models.CampaignStatusRunning, models.CampaignStatusPaused},
		models.CampaignStatusCancelled)
}

// GetProgress returns the counter snapshot plus derived percentage and ETA.
// Both derive to zero when their denominators are zero.
func (s *CampaignExecutor) GetProgress(ctx context.Context, id primitive.ObjectID) (*models.CampaignProgress, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	percent := 0
	if campaign.TotalContacts > 0 {
		percent = int(math.Round(float64(campaign.SentCount+campaign.FailedCount) / float64(campaign.TotalContacts) * 100))
	}

	eta := 0
	if campaign.MessagesPerMinute > 0 {
		eta = campaign.PendingCount / campaign.MessagesPerMinute
	}

	return &models.CampaignProgress{
		CampaignID:     campaign.ID,
		Status:         campaign.Status,
		TotalContacts:  campaign.TotalContacts,
		SentCount:      campaign.SentCount,
		DeliveredCount: campaign.DeliveredCount,
		FailedCount:    campaign.FailedCount,
		PendingCount:   campaign.PendingCount,
		Percent:        percent,
		ETAMinutes:     eta,
	}, nil
}
