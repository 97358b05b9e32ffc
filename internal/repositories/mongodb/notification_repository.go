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

// NotificationRepository implements repositories.NotificationRepository
type NotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *mongo.Database) repositories.NotificationRepository {
	return &NotificationRepository{collection: db.Collection("operator_notifications")}
}

// Create inserts an operator notification
func (r *NotificationRepository) Create(ctx context.Context, notification *models.OperatorNotification) error {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// FindByID finds a notification by ID
func (r *NotificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.OperatorNotification, error) {
	var notification models.OperatorNotification
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification); err != nil {
		return nil, err
	}
	return &notification, nil
}

// FindVisible finds non-dismissed notifications with pagination
func (r *NotificationRepository) FindVisible(ctx context.Context, page, limit int) ([]*models.OperatorNotification, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"dismissed": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []*models.OperatorNotification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.OperatorNotification{}
	}
	return notifications, nil
}

// SetAcknowledged updates the acknowledged flag
func (r *NotificationRepository) SetAcknowledged(ctx context.Context, id primitive.ObjectID, acknowledged bool) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"acknowledged": acknowledged, "updatedAt": time.Now()},
	})
	return err
}

// SetDismissed updates the dismissed flag
func (r *NotificationRepository) SetDismissed(ctx context.Context, id primitive.ObjectID, dismissed bool) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"dismissed": dismissed, "updatedAt": time.Now()},
	})
	return err
}
