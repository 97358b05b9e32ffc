package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/crediflow/crm-backend/internal/handlers"
	"github.com/crediflow/crm-backend/internal/middleware"
	"github.com/crediflow/crm-backend/internal/services"
)

// Handlers bundles every HTTP handler wired by the router
type Handlers struct {
	Auth       *handlers.AuthHandler
	Campaign   *handlers.CampaignHandler
	Automation *handlers.AutomationHandler
	Message    *handlers.MessageHandler
	Retry      *handlers.RetryHandler
	Contact    *handlers.ContactHandler
	Template   *handlers.TemplateHandler
	Health     *handlers.HealthHandler
}

// SetupRoutes registers all API routes
func SetupRoutes(router *gin.Engine, h Handlers, authService *services.AuthService) {
	// Public endpoints
	router.GET("/health", h.Health.Health)
	router.POST("/api/auth/login", h.Auth.Login)
	router.POST("/api/webhooks/message-status", h.Message.StatusCallback)

	api := router.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(authService))
	{
		users := api.Group("/users")
		{
			users.POST("", h.Auth.Register)
			users.GET("/me", h.Auth.Me)
		}

		contacts := api.Group("/contacts")
		{
			contacts.POST("", h.Contact.Create)
			contacts.GET("", h.Contact.List)
			contacts.GET("/:id", h.Contact.Get)
			contacts.PUT("/:id", h.Contact.Update)
			contacts.DELETE("/:id", h.Contact.Delete)
		}

		templates := api.Group("/templates")
		{
			templates.POST("", h.Template.Create)
			templates.GET("", h.Template.List)
			templates.GET("/gateway", h.Template.GatewayTemplates)
			templates.GET("/:id", h.Template.Get)
			templates.PATCH("/:id/status", middleware.RequireCampaignControl(), h.Template.SetStatus)
			templates.DELETE("/:id", h.Template.Delete)
		}

		messages := api.Group("/messages")
		{
			messages.POST("", h.Message.Send)
			messages.POST("/:id/retry", h.Message.Retry)
			messages.GET("/statistics", h.Message.Statistics)
		}

		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", h.Campaign.Create)
			campaigns.GET("", h.Campaign.List)
			campaigns.GET("/:id", h.Campaign.Get)
			campaigns.POST("/:id/recipients", h.Campaign.AddRecipients)
			campaigns.GET("/:id/progress", h.Campaign.Progress)

			// Lifecycle transitions need an operator role
			control := campaigns.Group("")
			control.Use(middleware.RequireCampaignControl())
			{
				control.POST("/:id/execute", h.Campaign.Execute)
				control.POST("/:id/pause", h.Campaign.Pause)
				control.POST("/:id/resume", h.Campaign.Resume)
				control.POST("/:id/cancel", h.Campaign.Cancel)
			}
		}

		automations := api.Group("/automations")
		{
			automations.GET("", h.Automation.List)
			automations.GET("/executions", h.Automation.RunningExecutions)
			automations.GET("/executions/:handle", h.Automation.GetExecution)
			automations.GET("/:id", h.Automation.Get)
			automations.GET("/:id/executions", h.Automation.ListExecutions)

			control := automations.Group("")
			control.Use(middleware.RequireCampaignControl())
			{
				control.POST("", h.Automation.Create)
				control.PUT("/:id", h.Automation.Update)
				control.DELETE("/:id", h.Automation.Delete)
				control.PATCH("/:id/toggle", h.Automation.Toggle)
				control.POST("/:id/execute", h.Automation.Execute)
				control.POST("/events", h.Automation.TriggerEvent)
				control.POST("/executions/:handle/cancel", h.Automation.CancelExecution)
			}
		}

		retries := api.Group("/retries")
		{
			retries.GET("", h.Retry.List)
			retries.GET("/stats", h.Retry.Stats)
			retries.DELETE("/:messageId", middleware.RequireCampaignControl(), h.Retry.Cancel)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.Retry.Notifications)
			notifications.POST("/:id/acknowledge", h.Retry.Acknowledge)
			notifications.POST("/:id/dismiss", h.Retry.Dismiss)
		}
	}
}
