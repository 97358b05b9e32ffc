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

// AutomationRepository implements repositories.AutomationRepository
type AutomationRepository struct {
	collection *mongo.Collection
}

// NewAutomationRepository creates a new AutomationRepository
func NewAutomationRepository(db *mongo.Database) repositories.AutomationRepository {
	return &AutomationRepository{collection: db.Collection("automations")}
}

// Create inserts an automation
func (r *AutomationRepository) Create(ctx context.Context, automation *models.Automation) error {
	if automation.ID.IsZero() {
		automation.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, automation)
	return err
}

// FindByID finds an automation by ID
func (r *AutomationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Automation, error) {
	var automation models.Automation
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&automation); err != nil {
		return nil, err
	}
	return &automation, nil
}

// FindAll finds all automations with pagination
func (r *AutomationRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Automation, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var automations []*models.Automation
	if err := cursor.All(ctx, &automations); err != nil {
		return nil, err
	}
	if automations == nil {
		automations = []*models.Automation{}
	}
	return automations, nil
}

// FindDueTimeTriggers finds active time-triggered automations whose next run
// is at or before now
func (r *AutomationRepository) FindDueTimeTriggers(ctx context.Context, now time.Time) ([]*models.Automation, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"isActive":     true,
		"trigger.type": models.TriggerTypeTime,
		"nextRun":      bson.M{"$gt": time.Time{}, "$lte": now},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var automations []*models.Automation
	if err := cursor.All(ctx, &automations); err != nil {
		return nil, err
	}
	return automations, nil
}

// FindActiveByEventType finds active event-triggered automations for an event
func (r *AutomationRepository) FindActiveByEventType(ctx context.Context, eventType string) ([]*models.Automation, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"isActive":          true,
		"trigger.type":      models.TriggerTypeEvent,
		"trigger.eventType": eventType,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var automations []*models.Automation
	if err := cursor.All(ctx, &automations); err != nil {
		return nil, err
	}
	return automations, nil
}

// Update replaces an automation document
func (r *AutomationRepository) Update(ctx context.Context, automation *models.Automation) error {
	automation.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": automation.ID}, automation)
	return err
}

// Delete removes an automation
func (r *AutomationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// SetActive toggles an automation on or off
func (r *AutomationRepository) SetActive(ctx context.Context, id primitive.ObjectID, isActive bool) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"isActive": isActive, "updatedAt": time.Now()},
	})
	return err
}

// RecordRun updates run statistics after an execution finishes
func (r *AutomationRepository) RecordRun(ctx context.Context, id primitive.ObjectID, success bool, lastRun, nextRun time.Time) error {
	inc := bson.M{"totalRuns": 1}
	if success {
		inc["successfulRuns"] = 1
	}
	set := bson.M{"lastRun": lastRun, "updatedAt": time.Now()}
	if !nextRun.IsZero() {
		set["nextRun"] = nextRun
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": inc, "$set": set})
	return err
}
