package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crediflow/crm-backend/internal/services"
)

// RetryHandler handles the retry backlog and operator notifications
type RetryHandler struct {
	retryManager *services.RetryManager
}

// NewRetryHandler creates a new RetryHandler
func NewRetryHandler(retryManager *services.RetryManager) *RetryHandler {
	return &RetryHandler{retryManager: retryManager}
}

// List handles GET /retries
func (h *RetryHandler) List(c *gin.Context) {
	entries, err := h.retryManager.GetPendingRetries(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"retries": entries})
}

// Stats handles GET /retries/stats
func (h *RetryHandler) Stats(c *gin.Context) {
	stats, err := h.retryManager.GetRetryStats(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Cancel handles DELETE /retries/:messageId
func (h *RetryHandler) Cancel(c *gin.Context) {
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	cancelled, err := h.retryManager.CancelRetry(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// Notifications handles GET /notifications
func (h *RetryHandler) Notifications(c *gin.Context) {
	page, limit := pagination(c)
	notifications, err := h.retryManager.ListNotifications(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "page": page, "limit": limit})
}

// Acknowledge handles POST /notifications/:id/acknowledge
func (h *RetryHandler) Acknowledge(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.retryManager.AcknowledgeNotification(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

// Dismiss handles POST /notifications/:id/dismiss
func (h *RetryHandler) Dismiss(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.retryManager.DismissNotification(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": true})
}
