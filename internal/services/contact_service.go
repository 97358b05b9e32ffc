package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
	"github.com/crediflow/crm-backend/pkg/apperrors"
	"github.com/crediflow/crm-backend/pkg/gateway"
)

// ContactService manages the contact book
type ContactService struct {
	contactRepo        repositories.ContactRepository
	defaultCountryCode string
}

// NewContactService creates a new ContactService
func NewContactService(contactRepo repositories.ContactRepository, defaultCountryCode string) *ContactService {
	return &ContactService{
		contactRepo:        contactRepo,
		defaultCountryCode: defaultCountryCode,
	}
}

// CreateContact validates the phone number, normalizes it and stores the
// contact. Duplicate phone numbers are rejected.
func (s *ContactService) CreateContact(ctx context.Context, contact *models.Contact) error {
	if contact.FirstName == "" {
		return apperrors.NewValidation("firstName", "first name is required")
	}

	phone, err := gateway.NormalizePhone(contact.Phone, s.defaultCountryCode)
	if err != nil {
		return err
	}
	contact.Phone = phone

	if _, err := s.contactRepo.FindByPhone(ctx, phone); err == nil {
		return apperrors.NewValidation("phone", "phone number is already registered")
	} else if err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to check phone: %w", err)
	}

	contact.IsActive = true
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()
	return s.contactRepo.Create(ctx, contact)
}

// GetContact loads one contact
func (s *ContactService) GetContact(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("contact", id.Hex())
		}
		return nil, err
	}
	return contact, nil
}

// ListContacts returns contacts with pagination
func (s *ContactService) ListContacts(ctx context.Context, page, limit int) ([]*models.Contact, error) {
	return s.contactRepo.FindAll(ctx, page, limit)
}

// UpdateContact renormalizes the phone when changed and saves the contact
func (s *ContactService) UpdateContact(ctx context.Context, contact *models.Contact) error {
	existing, err := s.GetContact(ctx, contact.ID)
	if err != nil {
		return err
	}

	if contact.Phone != existing.Phone {
		phone, err := gateway.NormalizePhone(contact.Phone, s.defaultCountryCode)
		if err != nil {
			return err
		}
		contact.Phone = phone
	}
	contact.CreatedAt = existing.CreatedAt
	contact.UpdatedAt = time.Now()
	return s.contactRepo.Update(ctx, contact)
}

// DeleteContact removes a contact
func (s *ContactService) DeleteContact(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetContact(ctx, id); err != nil {
		return err
	}
	return s.contactRepo.Delete(ctx, id)
}
