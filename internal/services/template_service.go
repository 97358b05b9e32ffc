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
)

// TemplateService manages reusable message templates and their approval state
type TemplateService struct {
	templateRepo repositories.TemplateRepository
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo repositories.TemplateRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo}
}

// CreateTemplate stores a new template in PENDING; names are unique
func (s *TemplateService) CreateTemplate(ctx context.Context, template *models.Template) error {
	if template.Name == "" {
		return apperrors.NewValidation("name", "template name is required")
	}
	if template.Content == "" {
		return apperrors.NewValidation("content", "template content is required")
	}

	if _, err := s.templateRepo.FindByName(ctx, template.Name); err == nil {
		return apperrors.NewValidation("name", "template name is already in use")
	} else if err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to check template name: %w", err)
	}

	template.Status = models.TemplateStatusPending
	template.CreatedAt = time.Now()
	template.UpdatedAt = time.Now()
	return s.templateRepo.Create(ctx, template)
}

// GetTemplate loads one template
func (s *TemplateService) GetTemplate(ctx context.Context, id primitive.ObjectID) (*models.Template, error) {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("template", id.Hex())
		}
		return nil, err
	}
	return template, nil
}

// ListTemplates returns templates with pagination
func (s *TemplateService) ListTemplates(ctx context.Context, page, limit int) ([]*models.Template, error) {
	return s.templateRepo.FindAll(ctx, page, limit)
}

// SetTemplateStatus records the provider approval decision
func (s *TemplateService) SetTemplateStatus(ctx context.Context, id primitive.ObjectID, status models.TemplateStatus) error {
	switch status {
	case models.TemplateStatusPending, models.TemplateStatusApproved, models.TemplateStatusRejected:
	default:
		return apperrors.NewValidation("status", fmt.Sprintf("unknown template status %q", status))
	}

	template, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	template.Status = status
	template.UpdatedAt = time.Now()
	return s.templateRepo.Update(ctx, template)
}

// DeleteTemplate removes a template
func (s *TemplateService) DeleteTemplate(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetTemplate(ctx, id); err != nil {
		return err
	}
	return s.templateRepo.Delete(ctx, id)
}
