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

// RetryRepository implements repositories.RetryRepository
type RetryRepository struct {
	collection *mongo.Collection
}

// NewRetryRepository creates a new RetryRepository
func NewRetryRepository(db *mongo.Database) repositories.RetryRepository {
	return &RetryRepository{collection: db.Collection("retry_entries")}
}

// Create inserts a retry entry
func (r *RetryRepository) Create(ctx context.Context, entry *models.RetryEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// FindByID finds a retry entry by ID
func (r *RetryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.RetryEntry, error) {
	var entry models.RetryEntry
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByMessageID finds the retry entry for a message
func (r *RetryRepository) FindByMessageID(ctx context.Context, messageID primitive.ObjectID) (*models.RetryEntry, error) {
	var entry models.RetryEntry
	if err := r.collection.FindOne(ctx, bson.M{"messageId": messageID}).Decode(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindDue finds entries whose next attempt time has passed, oldest first
func (r *RetryRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.RetryEntry, error) {
	opts := options.Find().
		SetSort(bson.M{"nextAttemptAt": 1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"nextAttemptAt": bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*models.RetryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.RetryEntry{}
	}
	return entries, nil
}

// FindAll returns every pending retry entry
func (r *RetryRepository) FindAll(ctx context.Context) ([]*models.RetryEntry, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"nextAttemptAt": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*models.RetryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.RetryEntry{}
	}
	return entries, nil
}

// Update replaces a retry entry document
func (r *RetryRepository) Update(ctx context.Context, entry *models.RetryEntry) error {
	entry.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": entry.ID}, entry)
	return err
}

// Delete removes a retry entry
func (r *RetryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Count returns the number of pending entries
func (r *RetryRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// CountDue returns the number of entries due at or before now
func (r *RetryRepository) CountDue(ctx context.Context, now time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"nextAttemptAt": bson.M{"$lte": now}})
}

// CountByAttempt returns the number of entries on a given attempt
func (r *RetryRepository) CountByAttempt(ctx context.Context, attempt int) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"attempt": attempt})
}
