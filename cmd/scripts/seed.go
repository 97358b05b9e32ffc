package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/crediflow/crm-backend/internal/config"
	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories/mongodb"
	mongoclient "github.com/crediflow/crm-backend/pkg/mongodb"
)

// Seeds a development database with an admin user, sample contacts and
// approved templates. Safe to run repeatedly; existing records are kept.
func main() {
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
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.MongoDB.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userRepo := mongodb.NewUserRepository(db)
	contactRepo := mongodb.NewContactRepository(db)
	templateRepo := mongodb.NewTemplateRepository(db)

	// Admin user
	if _, err := userRepo.FindByEmail(ctx, "admin@crediflow.local"); err != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		admin := &models.User{
			Name:         "Admin",
			Email:        "admin@crediflow.local",
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			IsActive:     true,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			log.Fatalf("Failed to create admin user: %v", err)
		}
		log.Println("Created admin user admin@crediflow.local")
	}

	// Sample contacts
	contacts := []*models.Contact{
		{FirstName: "Ravi", LastName: "Sharma", Phone: "+919812345001", LeadSource: "website", LoanType: "personal"},
		{FirstName: "Priya", LastName: "Nair", Phone: "+919812345002", LeadSource: "referral", LoanType: "home"},
		{FirstName: "Arjun", LastName: "Mehta", Phone: "+919812345003", LeadSource: "walk-in", LoanType: "business"},
	}
	for _, contact := range contacts {
		if _, err := contactRepo.FindByPhone(ctx, contact.Phone); err == nil {
			continue
		}
		contact.IsActive = true
		contact.CreatedAt = time.Now()
		contact.UpdatedAt = time.Now()
		if err := contactRepo.Create(ctx, contact); err != nil {
			log.Fatalf("Failed to create contact %s: %v", contact.Phone, err)
		}
		log.Printf("Created contact %s %s", contact.FirstName, contact.LastName)
	}

	// Approved templates matching the mock gateway
	templates := []*models.Template{
		{Name: "loan_offer", Content: "Hi {{1}}, your pre-approved loan of {{2}} awaits.", Channel: models.ChannelWhatsApp, Variables: []string{"name", "amount"}},
		{Name: "payment_reminder", Content: "Hi {{1}}, your EMI of {{2}} is due on {{3}}.", Channel: models.ChannelWhatsApp, Variables: []string{"name", "amount", "date"}},
	}
	for _, template := range templates {
		if _, err := templateRepo.FindByName(ctx, template.Name); err == nil {
			continue
		}
		template.Status = models.TemplateStatusApproved
		template.CreatedAt = time.Now()
		template.UpdatedAt = time.Now()
		if err := templateRepo.Create(ctx, template); err != nil {
			log.Fatalf("Failed to create template %s: %v", template.Name, err)
		}
		log.Printf("Created template %s", template.Name)
	}

	log.Println("Seeding complete")
}
