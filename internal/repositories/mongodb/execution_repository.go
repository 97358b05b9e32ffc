package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
)

// ExecutionRepository implements repositories.ExecutionRepository
type ExecutionRepository struct {
	collection *mongo.Collection
}

// NewExecutionRepository creates a new ExecutionRepository
func NewExecutionRepository(db *mongo.Database) repositories.ExecutionRepository {
	return &ExecutionRepository{collection: db.Collection("automation_executions")}
}

// Create inserts an execution record
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	_, err := r.collection.InsertOne(ctx, execution)
	return err
}

// FindByID finds an execution by its handle
func (r *ExecutionRepository) FindByID(ctx context.Context, id string) (*models.Execution, error) {
	var execution models.Execution
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&execution); err != nil {
		return nil, err
	}
	return &execution, nil
}

// FindByStatus finds executions by status
func (r *ExecutionRepository) FindByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, options.Find().SetSort(bson.M{"startedAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var executions []*models.Execution
	if err := cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	if executions == nil {
		executions = []*models.Execution{}
	}
	return executions, nil
}

// FindByAutomation finds executions of one automation with pagination
func (r *ExecutionRepository) FindByAutomation(ctx context.Context, automationID primitive.ObjectID, page, limit int) ([]*models.Execution, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"startedAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"automationId": automationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var executions []*models.Execution
	if err := cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	if executions == nil {
		executions = []*models.Execution{}
	}
	return executions, nil
}

// Update replaces an execution document
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.Execution) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": execution.ID}, execution)
	return err
}
