package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crediflow/crm-backend/internal/middleware"
	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/services"
)

// CampaignHandler handles campaign related HTTP requests
type CampaignHandler struct {
	executor *services.CampaignExecutor
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(executor *services.CampaignExecutor) *CampaignHandler {
	return &CampaignHandler{executor: executor}
}

type createCampaignRequest struct {
	Name              string         `json:"name" binding:"required"`
	Description       string         `json:"description"`
	Channel           models.Channel `json:"channel" binding:"required"`
	MessageBody       string         `json:"messageBody"`
	TemplateName      string         `json:"templateName"`
	TemplateParams    []string       `json:"templateParams"`
	MediaURL          string         `json:"mediaUrl"`
	MediaType         string         `json:"mediaType"`
	ScheduledAt       time.Time      `json:"scheduledAt"`
	MessagesPerMinute int            `json:"messagesPerMinute"`
}

// Create handles POST /campaigns
func (h *CampaignHandler) Create(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign := &models.Campaign{
		Name:              req.Name,
		Description:       req.Description,
		Channel:           req.Channel,
		MessageBody:       req.MessageBody,
		TemplateName:      req.TemplateName,
		TemplateParams:    req.TemplateParams,
		MediaURL:          req.MediaURL,
		MediaType:         req.MediaType,
		ScheduledAt:       req.ScheduledAt,
		MessagesPerMinute: req.MessagesPerMinute,
		CreatedBy:         middleware.UserID(c),
	}
	if err := h.executor.CreateCampaign(c.Request.Context(), campaign); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// Get handles GET /campaigns/:id
func (h *CampaignHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	campaign, err := h.executor.GetCampaign(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// List handles GET /campaigns
func (h *CampaignHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	campaigns, err := h.executor.ListCampaigns(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "page": page, "limit": limit})
}

type addRecipientsRequest struct {
	ContactIDs []string `json:"contactIds" binding:"required"`
}

// AddRecipients handles POST /campaigns/:id/recipients
func (h *CampaignHandler) AddRecipients(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	var req addRecipientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contactIDs := make([]primitive.ObjectID, 0, len(req.ContactIDs))
	for _, raw := range req.ContactIDs {
		contactID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact ID: " + raw})
			return
		}
		contactIDs = append(contactIDs, contactID)
	}

	added, err := h.executor.AddRecipients(c.Request.Context(), id, contactIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// Execute handles POST /campaigns/:id/execute
func (h *CampaignHandler) Execute(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	if err := h.executor.ExecuteCampaign(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.CampaignStatusRunning})
}

// Pause handles POST /campaigns/:id/pause
func (h *CampaignHandler) Pause(c *gin.Context) {
	h.transition(c, h.executor.PauseCampaign, models.CampaignStatusPaused)
}

// Resume handles POST /campaigns/:id/resume
func (h *CampaignHandler) Resume(c *gin.Context) {
	h.transition(c, h.executor.ResumeCampaign, models.CampaignStatusRunning)
}

// Cancel handles POST /campaigns/:id/cancel
func (h *CampaignHandler) Cancel(c *gin.Context) {
	h.transition(c, h.executor.CancelCampaign, models.CampaignStatusCancelled)
}

func (h *CampaignHandler) transition(c *gin.Context, op func(ctx context.Context, id primitive.ObjectID) (bool, error), to models.CampaignStatus) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	changed, err := op(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed, "status": to})
}

// Progress handles GET /campaigns/:id/progress
func (h *CampaignHandler) Progress(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	progress, err := h.executor.GetProgress(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
