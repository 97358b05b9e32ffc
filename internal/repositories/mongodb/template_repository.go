package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
)

// TemplateRepository implements repositories.TemplateRepository
type TemplateRepository struct {
	collection *mongo.Collection
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *mongo.Database) repositories.TemplateRepository {
	return &TemplateRepository{collection: db.Collection("templates")}
}

// Create inserts a template
func (r *TemplateRepository) Create(ctx context.Context, template *models.Template) error {
	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, template)
	return err
}

// FindByID finds a template by ID
func (r *TemplateRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Template, error) {
	var template models.Template
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&template); err != nil {
		return nil, err
	}
	return &template, nil
}

// FindByName finds a template by name
func (r *TemplateRepository) FindByName(ctx context.Context, name string) (*models.Template, error) {
	var template models.Template
	if err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&template); err != nil {
		return nil, err
	}
	return &template, nil
}

// FindByStatus finds templates by approval status with pagination
func (r *TemplateRepository) FindByStatus(ctx context.Context, status models.TemplateStatus, page, limit int) ([]*models.Template, error) {
	return r.find(ctx, bson.M{"status": status}, page, limit)
}

// FindAll finds all templates with pagination
func (r *TemplateRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Template, error) {
	return r.find(ctx, bson.M{}, page, limit)
}

func (r *TemplateRepository) find(ctx context.Context, filter bson.M, page, limit int) ([]*models.Template, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"name": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []*models.Template
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []*models.Template{}
	}
	return templates, nil
}

// Update replaces a template document
func (r *TemplateRepository) Update(ctx context.Context, template *models.Template) error {
	template.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": template.ID}, template)
	return err
}

// Delete removes a template
func (r *TemplateRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
