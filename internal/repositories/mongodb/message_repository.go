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

// MessageRepository implements repositories.MessageRepository
type MessageRepository struct {
	collection *mongo.Collection
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *mongo.Database) repositories.MessageRepository {
	return &MessageRepository{collection: db.Collection("messages")}
}

// Create inserts a message record
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, message)
	return err
}

// FindByID finds a message by ID
func (r *MessageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message); err != nil {
		return nil, err
	}
	return &message, nil
}

// FindByProviderMessageID finds a message by the provider-assigned ID
func (r *MessageRepository) FindByProviderMessageID(ctx context.Context, providerMessageID string) (*models.Message, error) {
	var message models.Message
	if err := r.collection.FindOne(ctx, bson.M{"providerMessageId": providerMessageID}).Decode(&message); err != nil {
		return nil, err
	}
	return &message, nil
}

// FindByContact finds messages for a contact with pagination
func (r *MessageRepository) FindByContact(ctx context.Context, contactID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"contactId": contactID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

// Update replaces a message document
func (r *MessageRepository) Update(ctx context.Context, message *models.Message) error {
	message.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": message.ID}, message)
	return err
}

// CountByStatus counts messages with a status, optionally scoped to contacts
func (r *MessageRepository) CountByStatus(ctx context.Context, status models.MessageStatus, contactIDs []primitive.ObjectID) (int64, error) {
	filter := bson.M{"status": status}
	if contactIDs != nil {
		filter["contactId"] = bson.M{"$in": contactIDs}
	}
	return r.collection.CountDocuments(ctx, filter)
}

// Count counts messages, optionally scoped to contacts
func (r *MessageRepository) Count(ctx context.Context, contactIDs []primitive.ObjectID) (int64, error) {
	filter := bson.M{}
	if contactIDs != nil {
		filter["contactId"] = bson.M{"$in": contactIDs}
	}
	return r.collection.CountDocuments(ctx, filter)
}
