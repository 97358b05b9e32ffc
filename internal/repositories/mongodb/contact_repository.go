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

// ContactRepository implements repositories.ContactRepository
type ContactRepository struct {
	collection *mongo.Collection
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *mongo.Database) repositories.ContactRepository {
	return &ContactRepository{collection: db.Collection("contacts")}
}

// Create inserts a contact
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID.IsZero() {
		contact.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, contact)
	return err
}

// FindByID finds a contact by ID
func (r *ContactRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	var contact models.Contact
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// FindByPhone finds a contact by phone number
func (r *ContactRepository) FindByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	var contact models.Contact
	if err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// FindAll finds all contacts with pagination
func (r *ContactRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Contact, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contacts []*models.Contact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []*models.Contact{}
	}
	return contacts, nil
}

// FindIDsByAssignee returns the IDs of contacts assigned to a user
func (r *ContactRepository) FindIDsByAssignee(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"assignedTo": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// Update replaces a contact document
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": contact.ID}, contact)
	return err
}

// Delete removes a contact
func (r *ContactRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Count returns the total number of contacts
func (r *ContactRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
