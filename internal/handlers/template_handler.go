package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crediflow/crm-backend/internal/middleware"
	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/services"
	"github.com/crediflow/crm-backend/pkg/gateway"
)

// TemplateHandler handles message template HTTP requests
type TemplateHandler struct {
	templateService *services.TemplateService
	gateway         gateway.Client
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(templateService *services.TemplateService, gw gateway.Client) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, gateway: gw}
}

// GatewayTemplates handles GET /templates/gateway, listing the templates the
// provider itself knows about
func (h *TemplateHandler) GatewayTemplates(c *gin.Context) {
	templates, err := h.gateway.ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// Create handles POST /templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var template models.Template
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	template.CreatedBy = middleware.UserID(c)

	if err := h.templateService.CreateTemplate(c.Request.Context(), &template); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// Get handles GET /templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	template, err := h.templateService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// List handles GET /templates
func (h *TemplateHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	templates, err := h.templateService.ListTemplates(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates, "page": page, "limit": limit})
}

type templateStatusRequest struct {
	Status models.TemplateStatus `json:"status" binding:"required"`
}

// SetStatus handles PATCH /templates/:id/status. Admin and manager only.
func (h *TemplateHandler) SetStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	var req templateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.templateService.SetTemplateStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// Delete handles DELETE /templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	if err := h.templateService.DeleteTemplate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
