package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
	"github.com/crediflow/crm-backend/pkg/apperrors"
)

// messageRetrier is the slice of MessageService the retry sweep needs
type messageRetrier interface {
	RetryMessage(ctx context.Context, messageID primitive.ObjectID) (*SendOutcome, error)
}

// RetryManager keeps a persistent queue of failed sends and re-attempts them
// on an exponential backoff schedule. Exhausted entries are removed and raise
// exactly one operator notification.
type RetryManager struct {
	retryRepo        repositories.RetryRepository
	notificationRepo repositories.NotificationRepository
	messages         messageRetrier

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sweepLimit  int
}

// NewRetryManager creates a new RetryManager
func NewRetryManager(
	retryRepo repositories.RetryRepository,
	notificationRepo repositories.NotificationRepository,
	messages messageRetrier,
	maxAttempts int,
	baseDelay, maxDelay time.Duration,
) *RetryManager {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Minute
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Minute
	}
	return &RetryManager{
		retryRepo:        retryRepo,
		notificationRepo: notificationRepo,
		messages:         messages,
		maxAttempts:      maxAttempts,
		baseDelay:        baseDelay,
		maxDelay:         maxDelay,
		sweepLimit:       100,
	}
}

// backoffDelay doubles per attempt starting from the base delay, capped at
// the configured maximum. Attempt numbers start at 1.
func (s *RetryManager) backoffDelay(attempt int) time.Duration {
	delay := s.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.maxDelay {
			return s.maxDelay
		}
	}
	if delay > s.maxDelay {
		return s.maxDelay
	}
	return delay
}

// ScheduleRetry enqueues the first re-attempt for a failed message. A message
// already queued keeps its existing entry.
func (s *RetryManager) ScheduleRetry(ctx context.Context, messageID, contactID, campaignID primitive.ObjectID, lastError string) error {
	if messageID.IsZero() {
		return apperrors.NewValidation("messageId", "message id is required")
	}

	existing, err := s.retryRepo.FindByMessageID(ctx, messageID)
	if err != nil && err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to look up retry entry: %w", err)
	}
	if existing != nil {
		return nil
	}

	entry := &models.RetryEntry{
		MessageID:     messageID,
		ContactID:     contactID,
		CampaignID:    campaignID,
		Attempt:       1,
		MaxAttempts:   s.maxAttempts,
		NextAttemptAt: time.Now().Add(s.backoffDelay(1)),
		LastError:     lastError,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := s.retryRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to enqueue retry: %w", err)
	}
	log.Printf("[RetryManager] queued retry for message %s, attempt 1 of %d", messageID.Hex(), s.maxAttempts)
	return nil
}

// SweepDue processes every retry entry due at the given instant. A successful
// re-send removes the entry; a failed one reschedules with doubled delay until
// attempts are exhausted, which removes the entry and notifies the operator.
// Returns the number of entries processed.
func (s *RetryManager) SweepDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.retryRepo.FindDue(ctx, now, s.sweepLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load due retries: %w", err)
	}

	for _, entry := range due {
		s.processEntry(ctx, entry, now)
	}
	return len(due), nil
}

func (s *RetryManager) processEntry(ctx context.Context, entry *models.RetryEntry, now time.Time) {
	outcome, err := s.messages.RetryMessage(ctx, entry.MessageID)
	if err != nil {
		// The message disappeared or changed state under us. The entry can
		// never succeed; drop it.
		if apperrors.IsNotFound(err) || apperrors.IsPrecondition(err) {
			log.Printf("[RetryManager] dropping retry for message %s: %v", entry.MessageID.Hex(), err)
			if delErr := s.retryRepo.Delete(ctx, entry.ID); delErr != nil {
				log.Printf("[RetryManager] failed to drop retry entry %s: %v", entry.ID.Hex(), delErr)
			}
			return
		}
		// Infra or configuration failure: leave the entry due, the next
		// sweep picks it up again without consuming an attempt.
		log.Printf("[RetryManager] retry for message %s errored: %v", entry.MessageID.Hex(), err)
		return
	}

	if outcome.Success {
		if err := s.retryRepo.Delete(ctx, entry.ID); err != nil {
			log.Printf("[RetryManager] failed to remove retry entry %s: %v", entry.ID.Hex(), err)
		}
		log.Printf("[RetryManager] message %s sent on attempt %d", entry.MessageID.Hex(), entry.Attempt)
		return
	}

	if entry.Attempt >= entry.MaxAttempts {
		s.exhaust(ctx, entry, outcome.ErrorDetail)
		return
	}

	entry.Attempt++
	entry.NextAttemptAt = now.Add(s.backoffDelay(entry.Attempt))
	entry.LastError = outcome.ErrorDetail
	entry.UpdatedAt = now
	if err := s.retryRepo.Update(ctx, entry); err != nil {
		log.Printf("[RetryManager] failed to reschedule retry entry %s: %v", entry.ID.Hex(), err)
		return
	}
	log.Printf("[RetryManager] message %s failed attempt %d, next attempt at %s",
		entry.MessageID.Hex(), entry.Attempt-1, entry.NextAttemptAt.Format(time.RFC3339))
}

// exhaust removes the entry and raises a single HIGH severity notification
func (s *RetryManager) exhaust(ctx context.Context, entry *models.RetryEntry, lastError string) {
	if err := s.retryRepo.Delete(ctx, entry.ID); err != nil {
		log.Printf("[RetryManager] failed to remove exhausted retry entry %s: %v", entry.ID.Hex(), err)
		return
	}

	notification := &models.OperatorNotification{
		Title:      "Message delivery failed permanently",
		Detail:     fmt.Sprintf("Message %s failed after %d attempts: %s", entry.MessageID.Hex(), entry.MaxAttempts, lastError),
		Severity:   models.SeverityHigh,
		MessageID:  entry.MessageID,
		ContactID:  entry.ContactID,
		CampaignID: entry.CampaignID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("[RetryManager] failed to create exhaustion notification for message %s: %v", entry.MessageID.Hex(), err)
	}
	log.Printf("[RetryManager] message %s exhausted all %d attempts", entry.MessageID.Hex(), entry.MaxAttempts)
}

// CancelRetry removes a pending retry entry. Returns false when no entry
// exists for the message; cancelling twice is a no-op.
func (s *RetryManager) CancelRetry(ctx context.Context, messageID primitive.ObjectID) (bool, error) {
	entry, err := s.retryRepo.FindByMessageID(ctx, messageID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up retry entry: %w", err)
	}
	if err := s.retryRepo.Delete(ctx, entry.ID); err != nil {
		return false, fmt.Errorf("failed to remove retry entry: %w", err)
	}
	return true, nil
}

// GetPendingRetries returns the full retry backlog
func (s *RetryManager) GetPendingRetries(ctx context.Context) ([]*models.RetryEntry, error) {
	return s.retryRepo.FindAll(ctx)
}

// GetRetryStats summarises the backlog for the operator dashboard
func (s *RetryManager) GetRetryStats(ctx context.Context, now time.Time) (*models.RetryStats, error) {
	pending, err := s.retryRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	dueNow, err := s.retryRepo.CountDue(ctx, now)
	if err != nil {
		return nil, err
	}
	first, err := s.retryRepo.CountByAttempt(ctx, 1)
	if err != nil {
		return nil, err
	}
	final, err := s.retryRepo.CountByAttempt(ctx, s.maxAttempts)
	if err != nil {
		return nil, err
	}
	return &models.RetryStats{
		Pending:      pending,
		DueNow:       dueNow,
		FirstAttempt: first,
		FinalAttempt: final,
	}, nil
}

// ListNotifications returns operator notifications that are not dismissed
func (s *RetryManager) ListNotifications(ctx context.Context, page, limit int) ([]*models.OperatorNotification, error) {
	return s.notificationRepo.FindVisible(ctx, page, limit)
}

// AcknowledgeNotification marks a notification as seen
func (s *RetryManager) AcknowledgeNotification(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.notificationRepo.FindByID(ctx, id); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperrors.NewNotFound("notification", id.Hex())
		}
		return err
	}
	return s.notificationRepo.SetAcknowledged(ctx, id, true)
}

// DismissNotification hides a notification from the visible list
func (s *RetryManager) DismissNotification(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.notificationRepo.FindByID(ctx, id); err != nil {
		if err == mongo.ErrNoDocuments {
			return apperrors.NewNotFound("notification", id.Hex())
		}
		return err
	}
	return s.notificationRepo.SetDismissed(ctx, id, true)
}
