package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crediflow/crm-backend/internal/models"
)

// CampaignRepository defines the interface for campaign data operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error)
	FindByStatus(ctx context.Context, status models.CampaignStatus, page, limit int) ([]*models.Campaign, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	// UpdateStatus sets the status only when the campaign is currently in one
	// of the given states; returns false when the guard did not match.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.CampaignStatus, to models.CampaignStatus) (bool, error)
	// IncrementCounters atomically applies counter deltas
	IncrementCounters(ctx context.Context, id primitive.ObjectID, sent, delivered, failed, pending int) error
	SetExecutionStart(ctx context.Context, id primitive.ObjectID, total int, startedAt time.Time) error
	SetCompleted(ctx context.Context, id primitive.ObjectID, completedAt time.Time) error
	Count(ctx context.Context) (int64, error)
}

// RecipientRepository defines the interface for campaign recipient records
type RecipientRepository interface {
	CreateMany(ctx context.Context, recipients []*models.CampaignRecipient) error
	FindPending(ctx context.Context, campaignID primitive.ObjectID, limit int) ([]*models.CampaignRecipient, error)
	FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]*models.CampaignRecipient, error)
	FindByCampaignAndContact(ctx context.Context, campaignID, contactID primitive.ObjectID) (*models.CampaignRecipient, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RecipientStatus, messageID primitive.ObjectID, errorDetail string) error
	UpdateStatusByMessage(ctx context.Context, messageID primitive.ObjectID, status models.RecipientStatus, errorDetail string) error
	CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error)
	CountPending(ctx context.Context, campaignID primitive.ObjectID) (int64, error)
	NextPosition(ctx context.Context, campaignID primitive.ObjectID) (int, error)
}

// ContactRepository defines the interface for contact data operations
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error)
	FindByPhone(ctx context.Context, phone string) (*models.Contact, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Contact, error)
	FindIDsByAssignee(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	FindByProviderMessageID(ctx context.Context, providerMessageID string) (*models.Message, error)
	FindByContact(ctx context.Context, contactID primitive.ObjectID, page, limit int) ([]*models.Message, error)
	Update(ctx context.Context, message *models.Message) error
	CountByStatus(ctx context.Context, status models.MessageStatus, contactIDs []primitive.ObjectID) (int64, error)
	Count(ctx context.Context, contactIDs []primitive.ObjectID) (int64, error)
}

// TemplateRepository defines the interface for template data operations
type TemplateRepository interface {
	Create(ctx context.Context, template *models.Template) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Template, error)
	FindByName(ctx context.Context, name string) (*models.Template, error)
	FindByStatus(ctx context.Context, status models.TemplateStatus, page, limit int) ([]*models.Template, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Template, error)
	Update(ctx context.Context, template *models.Template) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AutomationRepository defines the interface for automation data operations
type AutomationRepository interface {
	Create(ctx context.Context, automation *models.Automation) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Automation, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Automation, error)
	FindDueTimeTriggers(ctx context.Context, now time.Time) ([]*models.Automation, error)
	FindActiveByEventType(ctx context.Context, eventType string) ([]*models.Automation, error)
	Update(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	SetActive(ctx context.Context, id primitive.ObjectID, isActive bool) error
	RecordRun(ctx context.Context, id primitive.ObjectID, success bool, lastRun, nextRun time.Time) error
}

// ExecutionRepository defines the interface for automation execution records
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	FindByID(ctx context.Context, id string) (*models.Execution, error)
	FindByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error)
	FindByAutomation(ctx context.Context, automationID primitive.ObjectID, page, limit int) ([]*models.Execution, error)
	Update(ctx context.Context, execution *models.Execution) error
}

// RetryRepository defines the interface for retry entry operations
type RetryRepository interface {
	Create(ctx context.Context, entry *models.RetryEntry) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.RetryEntry, error)
	FindByMessageID(ctx context.Context, messageID primitive.ObjectID) (*models.RetryEntry, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*models.RetryEntry, error)
	FindAll(ctx context.Context) ([]*models.RetryEntry, error)
	Update(ctx context.Context, entry *models.RetryEntry) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	CountDue(ctx context.Context, now time.Time) (int64, error)
	CountByAttempt(ctx context.Context, attempt int) (int64, error)
}

// NotificationRepository defines the interface for operator notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.OperatorNotification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.OperatorNotification, error)
	FindVisible(ctx context.Context, page, limit int) ([]*models.OperatorNotification, error)
	SetAcknowledged(ctx context.Context, id primitive.ObjectID, acknowledged bool) error
	SetDismissed(ctx context.Context, id primitive.ObjectID, dismissed bool) error
}

// UserRepository defines the interface for operator user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}
