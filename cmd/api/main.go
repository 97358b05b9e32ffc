package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/crediflow/crm-backend/api/routes"
	"github.com/crediflow/crm-backend/internal/config"
	"github.com/crediflow/crm-backend/internal/handlers"
	"github.com/crediflow/crm-backend/internal/middleware"
	"github.com/crediflow/crm-backend/internal/repositories/mongodb"
	"github.com/crediflow/crm-backend/internal/scheduler"
	"github.com/crediflow/crm-backend/internal/services"
	"github.com/crediflow/crm-backend/pkg/gateway"
	mongoclient "github.com/crediflow/crm-backend/pkg/mongodb"
)

func main() {
	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, err := mongoclient.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Failed to disconnect from MongoDB: %v", err)
		}
	}()
	db := client.Database(cfg.MongoDB.Database)

	// Repositories
	campaignRepo := mongodb.NewCampaignRepository(db)
	recipientRepo := mongodb.NewRecipientRepository(db)
	contactRepo := mongodb.NewContactRepository(db)
	messageRepo := mongodb.NewMessageRepository(db)
	templateRepo := mongodb.NewTemplateRepository(db)
	automationRepo := mongodb.NewAutomationRepository(db)
	executionRepo := mongodb.NewExecutionRepository(db)
	retryRepo := mongodb.NewRetryRepository(db)
	notificationRepo := mongodb.NewNotificationRepository(db)
	userRepo := mongodb.NewUserRepository(db)

	// Gateway client
	var gatewayClient gateway.Client
	if cfg.Gateway.Mock {
		log.Println("Using mock messaging gateway")
		gatewayClient = gateway.NewMockClient()
	} else {
		gatewayClient = gateway.NewHTTPClient(gateway.Options{
			BaseURL:        cfg.Gateway.BaseURL,
			AccountID:      cfg.Gateway.AccountID,
			APISecret:      cfg.Gateway.APISecret,
			CountryCode:    cfg.Gateway.CountryCode,
			RequestTimeout: cfg.Gateway.RequestTimeout(),
		})
	}

	// Services
	messageService := services.NewMessageService(contactRepo, messageRepo, recipientRepo, campaignRepo, gatewayClient)
	retryManager := services.NewRetryManager(retryRepo, notificationRepo, messageService,
		cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay(), cfg.Retry.MaxDelay())
	campaignExecutor := services.NewCampaignExecutor(campaignRepo, recipientRepo, templateRepo,
		messageService, retryManager, cfg.Campaign.BatchSize, cfg.Campaign.MessagesPerMinute)
	automationEngine := services.NewAutomationEngine(automationRepo, executionRepo, notificationRepo,
		messageService, campaignExecutor)
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second)
	contactService := services.NewContactService(contactRepo, cfg.Gateway.CountryCode)
	templateService := services.NewTemplateService(templateRepo)

	// Executions left RUNNING by a previous process can never finish
	if n, err := automationEngine.RecoverStaleExecutions(context.Background()); err != nil {
		log.Printf("Failed to recover stale executions: %v", err)
	} else if n > 0 {
		log.Printf("Marked %d interrupted automation executions as failed", n)
	}

	// Periodic jobs: automation triggers, retry sweep, scheduled campaigns
	sched := scheduler.New()
	sched.Add("automation-triggers", cfg.Scheduler.TriggerInterval(), func(ctx context.Context, now time.Time) {
		if _, err := automationEngine.EvaluateTimeTriggers(ctx, now); err != nil {
			log.Printf("[Scheduler] trigger evaluation failed: %v", err)
		}
	})
	sched.Add("retry-sweep", cfg.Scheduler.SweepInterval(), func(ctx context.Context, now time.Time) {
		if _, err := retryManager.SweepDue(ctx, now); err != nil {
			log.Printf("[Scheduler] retry sweep failed: %v", err)
		}
	})
	sched.Add("scheduled-campaigns", cfg.Scheduler.CampaignInterval(), func(ctx context.Context, now time.Time) {
		if _, err := campaignExecutor.ExecuteDueScheduled(ctx, now); err != nil {
			log.Printf("[Scheduler] scheduled campaign sweep failed: %v", err)
		}
	})
	sched.Start()
	defer sched.Stop()

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedHosts))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Campaign:   handlers.NewCampaignHandler(campaignExecutor),
		Automation: handlers.NewAutomationHandler(automationEngine),
		Message:    handlers.NewMessageHandler(messageService),
		Retry:      handlers.NewRetryHandler(retryManager),
		Contact:    handlers.NewContactHandler(contactService),
		Template:   handlers.NewTemplateHandler(templateService, gatewayClient),
		Health:     handlers.NewHealthHandler(client, gatewayClient),
	}, authService)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
