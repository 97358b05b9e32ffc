package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
	"github.com/crediflow/crm-backend/pkg/apperrors"
	"github.com/crediflow/crm-backend/pkg/gateway"
)

// SendMessageInput describes one message to send to one contact
type SendMessageInput struct {
	ContactID    primitive.ObjectID
	CampaignID   primitive.ObjectID
	Channel      models.Channel
	Body         string
	TemplateName string
	Params       []string
	MediaURL     string
	MediaType    string
	SentBy       primitive.ObjectID
}

// SendOutcome is the result of a send attempt. Provider failures are reported
// here, not as errors; callers decide whether to enqueue a retry.
type SendOutcome struct {
	Success     bool               `json:"success"`
	MessageID   primitive.ObjectID `json:"messageId,omitempty"`
	ErrorDetail string             `json:"errorDetail,omitempty"`
}

// MessageService resolves contacts, invokes the gateway and persists message
// records with their initial status.
type MessageService struct {
	contactRepo   repositories.ContactRepository
	messageRepo   repositories.MessageRepository
	recipientRepo repositories.RecipientRepository
	campaignRepo  repositories.CampaignRepository
	gateway       gateway.Client
}

// NewMessageService creates a new MessageService
func NewMessageService(
	contactRepo repositories.ContactRepository,
	messageRepo repositories.MessageRepository,
	recipientRepo repositories.RecipientRepository,
	campaignRepo repositories.CampaignRepository,
	gatewayClient gateway.Client,
) *MessageService {
	return &MessageService{
		contactRepo:   contactRepo,
		messageRepo:   messageRepo,
		recipientRepo: recipientRepo,
		campaignRepo:  campaignRepo,
		gateway:       gatewayClient,
	}
}

// SendMessage resolves the contact, performs one gateway send and persists
// the message record. Validation and configuration problems surface as
// errors before any side effect; provider failures surface in the outcome.
func (s *MessageService) SendMessage(ctx context.Context, input SendMessageInput) (*SendOutcome, error) {
	contact, err := s.contactRepo.FindByID(ctx, input.ContactID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("contact", input.ContactID.Hex())
		}
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	if !contact.IsActive {
		return nil, apperrors.NewNotFound("contact", input.ContactID.Hex())
	}
	if input.Body == "" && input.TemplateName == "" {
		return nil, apperrors.NewValidation("message", "either body or templateName is required")
	}

	result, err := s.dispatch(ctx, contact.Phone, input.Body, input.TemplateName, input.Params, input.MediaURL, input.MediaType)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ContactID:      contact.ID,
		CampaignID:     input.CampaignID,
		Phone:          contact.Phone,
		Channel:        input.Channel,
		Body:           input.Body,
		TemplateName:   input.TemplateName,
		TemplateParams: input.Params,
		MediaURL:       input.MediaURL,
		MediaType:      input.MediaType,
		SentBy:         input.SentBy,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if result.Success {
		message.Status = models.MessageStatusSent
		message.ProviderMessageID = result.ProviderMessageID
		message.SentAt = time.Now()
	} else {
		message.Status = models.MessageStatusFailed
		message.ErrorDetail = result.ErrorDetail
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	return &SendOutcome{
		Success:     result.Success,
		MessageID:   message.ID,
		ErrorDetail: result.ErrorDetail,
	}, nil
}

func (s *MessageService) dispatch(ctx context.Context, phone, body, templateName string, params []string, mediaURL, mediaType string) (*gateway.SendResult, error) {
	switch {
	case mediaURL != "":
		return s.gateway.SendMedia(ctx, phone, templateName, params, mediaURL, mediaType)
	case templateName != "":
		return s.gateway.SendTemplate(ctx, phone, templateName, params)
	default:
		return s.gateway.SendText(ctx, phone, body)
	}
}

// RetryMessage re-attempts a previously failed message send. The dispatch
// record, when one exists, goes back to PENDING for the duration of the
// attempt and then forward to SENT or FAILED.
func (s *MessageService) RetryMessage(ctx context.Context, messageID primitive.ObjectID) (*SendOutcome, error) {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("message", messageID.Hex())
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if message.Status != models.MessageStatusFailed {
		return nil, apperrors.NewPrecondition("message is not in FAILED status")
	}

	if !message.CampaignID.IsZero() {
		if err := s.recipientRepo.UpdateStatusByMessage(ctx, message.ID, models.RecipientStatusPending, ""); err != nil {
			log.Printf("[MessageService] failed to reset dispatch record for message %s: %v", message.ID.Hex(), err)
		}
	}

	result, err := s.dispatch(ctx, message.Phone, message.Body, message.TemplateName, message.TemplateParams, message.MediaURL, message.MediaType)
	if err != nil {
		return nil, err
	}

	if result.Success {
		message.Status = models.MessageStatusSent
		message.ProviderMessageID = result.ProviderMessageID
		message.ErrorDetail = ""
		message.SentAt = time.Now()
	} else {
		message.Status = models.MessageStatusFailed
		message.ErrorDetail = result.ErrorDetail
	}
	if err := s.messageRepo.Update(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	if !message.CampaignID.IsZero() {
		status := models.RecipientStatusSent
		if !result.Success {
			status = models.RecipientStatusFailed
		}
		if err := s.recipientRepo.UpdateStatusByMessage(ctx, message.ID, status, result.ErrorDetail); err != nil {
			log.Printf("[MessageService] failed to update dispatch record for message %s: %v", message.ID.Hex(), err)
		}
	}

	return &SendOutcome{
		Success:     result.Success,
		MessageID:   message.ID,
		ErrorDetail: result.ErrorDetail,
	}, nil
}

// UpdateMessageStatus is the entry point for provider delivery callbacks.
// Transitions only move forward; stale or repeated callbacks are ignored.
func (s *MessageService) UpdateMessageStatus(ctx context.Context, providerMessageID string, status string) error {
	message, err := s.messageRepo.FindByProviderMessageID(ctx, providerMessageID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperrors.NewNotFound("message", providerMessageID)
		}
		return fmt.Errorf("failed to load message: %w", err)
	}

	var next models.MessageStatus
	switch strings.ToUpper(status) {
	case "DELIVERED":
		next = models.MessageStatusDelivered
	case "READ":
		next = models.MessageStatusRead
	case "FAILED":
		next = models.MessageStatusFailed
	default:
		return apperrors.NewValidation("status", "unknown delivery status "+status)
	}

	if !forwardTransition(message.Status, next) {
		return nil
	}

	message.Status = next
	if next == models.MessageStatusDelivered {
		message.DeliveredAt = time.Now()
	}
	if err := s.messageRepo.Update(ctx, message); err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	if !message.CampaignID.IsZero() && next == models.MessageStatusDelivered {
		if err := s.campaignRepo.IncrementCounters(ctx, message.CampaignID, 0, 1, 0, 0); err != nil {
			log.Printf("[MessageService] failed to bump delivered counter for campaign %s: %v", message.CampaignID.Hex(), err)
		}
		if err := s.recipientRepo.UpdateStatusByMessage(ctx, message.ID, models.RecipientStatusDelivered, ""); err != nil {
			log.Printf("[MessageService] failed to update dispatch record for message %s: %v", message.ID.Hex(), err)
		}
	}

	return nil
}

func forwardTransition(from, to models.MessageStatus) bool {
	switch from {
	case models.MessageStatusSent:
		return to == models.MessageStatusDelivered || to == models.MessageStatusRead || to == models.MessageStatusFailed
	case models.MessageStatusDelivered:
		return to == models.MessageStatusRead
	default:
		return false
	}
}

// GetMessageStatistics aggregates message outcomes visible to the user.
// Admins and managers see everything; agents only messages for contacts
// assigned to them.
func (s *MessageService) GetMessageStatistics(ctx context.Context, userID primitive.ObjectID, role models.Role) (*models.MessageStatistics, error) {
	var scope []primitive.ObjectID
	if role == models.RoleAgent {
		ids, err := s.contactRepo.FindIDsByAssignee(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assigned contacts: %w", err)
		}
		if ids == nil {
			ids = []primitive.ObjectID{}
		}
		scope = ids
	}

	total, err := s.messageRepo.Count(ctx, scope)
	if err != nil {
		return nil, err
	}
	sent, err := s.messageRepo.CountByStatus(ctx, models.MessageStatusSent, scope)
	if err != nil {
		return nil, err
	}
	delivered, err := s.messageRepo.CountByStatus(ctx, models.MessageStatusDelivered, scope)
	if err != nil {
		return nil, err
	}
	failed, err := s.messageRepo.CountByStatus(ctx, models.MessageStatusFailed, scope)
	if err != nil {
		return nil, err
	}

	return &models.MessageStatistics{
		Total:     total,
		Sent:      sent,
		Delivered: delivered,
		Failed:    failed,
	}, nil
}
