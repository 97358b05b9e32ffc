package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crediflow/crm-backend/pkg/gateway"
	"github.com/crediflow/crm-backend/pkg/mongodb"
)

// HealthHandler reports service and downstream health
type HealthHandler struct {
	mongoClient *mongodb.Client
	gateway     gateway.Client
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(mongoClient *mongodb.Client, gw gateway.Client) *HealthHandler {
	return &HealthHandler{mongoClient: mongoClient, gateway: gw}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	mongoOK := h.mongoClient.Ping(ctx) == nil
	gwHealth := h.gateway.CheckHealth(ctx)

	status := http.StatusOK
	if !mongoOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"mongodb": mongoOK,
		"gateway": gwHealth,
	})
}
