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

// CampaignRepository implements repositories.CampaignRepository
type CampaignRepository struct {
	collection *mongo.Collection
}

// NewCampaignRepository creates a new CampaignRepository
func NewCampaignRepository(db *mongo.Database) repositories.CampaignRepository {
	return &CampaignRepository{collection: db.Collection("campaigns")}
}

// Create inserts a campaign
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, campaign)
	return err
}

// FindByID finds a campaign by ID
func (r *CampaignRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// FindByStatus finds campaigns by status with pagination
func (r *CampaignRepository) FindByStatus(ctx context.Context, status models.CampaignStatus, page, limit int) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{"status": status}, page, limit)
}

// FindAll finds all campaigns with pagination
func (r *CampaignRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Campaign, error) {
	return r.find(ctx, bson.M{}, page, limit)
}

func (r *CampaignRepository) find(ctx context.Context, filter bson.M, page, limit int) ([]*models.Campaign, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []*models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}
	return campaigns, nil
}

// Update replaces a campaign document
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	campaign.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": campaign.ID}, campaign)
	return err
}

// UpdateStatus transitions the campaign status when the current status is one
// of the allowed source states. The guard makes concurrent transitions safe:
// only one caller observes a modified count of 1.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	filter := bson.M{"_id": id}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"status": to, "updatedAt": time.Now()},
	})
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// IncrementCounters atomically applies counter deltas
func (r *CampaignRepository) IncrementCounters(ctx context.Context, id primitive.ObjectID, sent, delivered, failed, pending int) error {
	inc := bson.M{}
	if sent != 0 {
		inc["sentCount"] = sent
	}
	if delivered != 0 {
		inc["deliveredCount"] = delivered
	}
	if failed != 0 {
		inc["failedCount"] = failed
	}
	if pending != 0 {
		inc["pendingCount"] = pending
	}
	if len(inc) == 0 {
		return nil
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": inc,
		"$set": bson.M{"updatedAt": time.Now()},
	})
	return err
}

// SetExecutionStart records the recipient total and start time when a
// campaign moves to RUNNING
func (r *CampaignRepository) SetExecutionStart(ctx context.Context, id primitive.ObjectID, total int, startedAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"totalContacts":  total,
			"pendingCount":   total,
			"sentCount":      0,
			"deliveredCount": 0,
			"failedCount":    0,
			"startedAt":      startedAt,
			"updatedAt":      time.Now(),
		},
	})
	return err
}

// SetCompleted records the completion time
func (r *CampaignRepository) SetCompleted(ctx context.Context, id primitive.ObjectID, completedAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"completedAt": completedAt, "updatedAt": time.Now()},
	})
	return err
}

// Count returns the total number of campaigns
func (r *CampaignRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
