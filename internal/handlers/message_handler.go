package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crediflow/crm-backend/internal/middleware"
	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/services"
)

// MessageHandler handles message sending and provider callbacks
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type sendMessageRequest struct {
	ContactID    string         `json:"contactId" binding:"required"`
	Channel      models.Channel `json:"channel" binding:"required"`
	Body         string         `json:"body"`
	TemplateName string         `json:"templateName"`
	Params       []string       `json:"params"`
	MediaURL     string         `json:"mediaUrl"`
	MediaType    string         `json:"mediaType"`
}

// Send handles POST /messages
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contactID, err := primitive.ObjectIDFromHex(req.ContactID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact ID"})
		return
	}

	outcome, err := h.messageService.SendMessage(c.Request.Context(), services.SendMessageInput{
		ContactID:    contactID,
		Channel:      req.Channel,
		Body:         req.Body,
		TemplateName: req.TemplateName,
		Params:       req.Params,
		MediaURL:     req.MediaURL,
		MediaType:    req.MediaType,
		SentBy:       middleware.UserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Retry handles POST /messages/:id/retry
func (h *MessageHandler) Retry(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	outcome, err := h.messageService.RetryMessage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type statusCallbackRequest struct {
	MessageID string `json:"messageId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// StatusCallback handles POST /webhooks/message-status, the provider delivery
// receipt endpoint. Unauthenticated; the provider does not hold a token.
func (h *MessageHandler) StatusCallback(c *gin.Context) {
	var req statusCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messageService.UpdateMessageStatus(c.Request.Context(), req.MessageID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// Statistics handles GET /messages/statistics. Agents see only messages for
// their assigned contacts.
func (h *MessageHandler) Statistics(c *gin.Context) {
	stats, err := h.messageService.GetMessageStatistics(c.Request.Context(), middleware.UserID(c), middleware.Role(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
