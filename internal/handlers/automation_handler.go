package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crediflow/crm-backend/internal/middleware"
	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/services"
)

// AutomationHandler handles automation related HTTP requests
type AutomationHandler struct {
	engine *services.AutomationEngine
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(engine *services.AutomationEngine) *AutomationHandler {
	return &AutomationHandler{engine: engine}
}

type createAutomationRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Trigger     models.Trigger  `json:"trigger" binding:"required"`
	Actions     []models.Action `json:"actions" binding:"required"`
	IsActive    bool            `json:"isActive"`
}

// Create handles POST /automations
func (h *AutomationHandler) Create(c *gin.Context) {
	var req createAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	automation := &models.Automation{
		Name:        req.Name,
		Description: req.Description,
		Trigger:     req.Trigger,
		Actions:     req.Actions,
		IsActive:    req.IsActive,
		CreatedBy:   middleware.UserID(c),
	}
	if err := h.engine.CreateAutomation(c.Request.Context(), automation); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, automation)
}

// Get handles GET /automations/:id
func (h *AutomationHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	automation, err := h.engine.GetAutomation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, automation)
}

// List handles GET /automations
func (h *AutomationHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	automations, err := h.engine.ListAutomations(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"automations": automations, "page": page, "limit": limit})
}

// Update handles PUT /automations/:id
func (h *AutomationHandler) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	var req createAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	automation := &models.Automation{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Trigger:     req.Trigger,
		Actions:     req.Actions,
		IsActive:    req.IsActive,
	}
	if err := h.engine.UpdateAutomation(c.Request.Context(), automation); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, automation)
}

// Delete handles DELETE /automations/:id
func (h *AutomationHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	if err := h.engine.DeleteAutomation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type toggleRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// Toggle handles PATCH /automations/:id/toggle
func (h *AutomationHandler) Toggle(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.ToggleAutomation(c.Request.Context(), id, *req.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isActive": *req.IsActive})
}

// Execute handles POST /automations/:id/execute
func (h *AutomationHandler) Execute(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	handle, err := h.engine.ExecuteAutomation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"executionId": handle})
}

type triggerEventRequest struct {
	EventType string                 `json:"eventType" binding:"required"`
	Payload   map[string]interface{} `json:"payload"`
}

// TriggerEvent handles POST /automations/events
func (h *AutomationHandler) TriggerEvent(c *gin.Context) {
	var req triggerEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handles, err := h.engine.TriggerEvent(c.Request.Context(), req.EventType, req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"executionIds": handles})
}

// GetExecution handles GET /automations/executions/:handle
func (h *AutomationHandler) GetExecution(c *gin.Context) {
	execution, err := h.engine.GetExecution(c.Request.Context(), c.Param("handle"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, execution)
}

// CancelExecution handles POST /automations/executions/:handle/cancel
func (h *AutomationHandler) CancelExecution(c *gin.Context) {
	cancelled, err := h.engine.CancelExecution(c.Request.Context(), c.Param("handle"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// RunningExecutions handles GET /automations/executions
func (h *AutomationHandler) RunningExecutions(c *gin.Context) {
	executions, err := h.engine.GetRunningExecutions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": executions})
}

// ListExecutions handles GET /automations/:id/executions
func (h *AutomationHandler) ListExecutions(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation ID"})
		return
	}

	page, limit := pagination(c)
	executions, err := h.engine.ListExecutions(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": executions, "page": page, "limit": limit})
}
