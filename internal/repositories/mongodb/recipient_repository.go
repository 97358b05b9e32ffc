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

// RecipientRepository implements repositories.RecipientRepository
type RecipientRepository struct {
	collection *mongo.Collection
}

// NewRecipientRepository creates a new RecipientRepository. The collection
// carries a unique index on (campaignId, contactId) so a contact appears at
// most once per campaign.
func NewRecipientRepository(db *mongo.Database) repositories.RecipientRepository {
	collection := db.Collection("campaign_recipients")
	_, _ = collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "campaignId", Value: 1}, {Key: "contactId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &RecipientRepository{collection: collection}
}

// CreateMany inserts dispatch records, skipping duplicates
func (r *RecipientRepository) CreateMany(ctx context.Context, recipients []*models.CampaignRecipient) error {
	if len(recipients) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient.ID.IsZero() {
			recipient.ID = primitive.NewObjectID()
		}
		docs = append(docs, recipient)
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// FindPending returns still-pending recipients in dispatch order
func (r *RecipientRepository) FindPending(ctx context.Context, campaignID primitive.ObjectID, limit int) ([]*models.CampaignRecipient, error) {
	opts := options.Find().
		SetSort(bson.M{"position": 1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{
		"campaignId": campaignID,
		"status":     models.RecipientStatusPending,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recipients []*models.CampaignRecipient
	if err := cursor.All(ctx, &recipients); err != nil {
		return nil, err
	}
	if recipients == nil {
		recipients = []*models.CampaignRecipient{}
	}
	return recipients, nil
}

// FindByCampaign returns all dispatch records for a campaign in order
func (r *RecipientRepository) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]*models.CampaignRecipient, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"campaignId": campaignID}, options.Find().SetSort(bson.M{"position": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recipients []*models.CampaignRecipient
	if err := cursor.All(ctx, &recipients); err != nil {
		return nil, err
	}
	if recipients == nil {
		recipients = []*models.CampaignRecipient{}
	}
	return recipients, nil
}

// FindByCampaignAndContact returns the record for one contact in one campaign
func (r *RecipientRepository) FindByCampaignAndContact(ctx context.Context, campaignID, contactID primitive.ObjectID) (*models.CampaignRecipient, error) {
	var recipient models.CampaignRecipient
	err := r.collection.FindOne(ctx, bson.M{"campaignId": campaignID, "contactId": contactID}).Decode(&recipient)
	if err != nil {
		return nil, err
	}
	return &recipient, nil
}

// UpdateStatus sets the delivery status of one dispatch record
func (r *RecipientRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RecipientStatus, messageID primitive.ObjectID, errorDetail string) error {
	set := bson.M{
		"status":      status,
		"errorDetail": errorDetail,
		"updatedAt":   time.Now(),
	}
	if !messageID.IsZero() {
		set["messageId"] = messageID
	}
	if status == models.RecipientStatusSent {
		set["sentAt"] = time.Now()
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// UpdateStatusByMessage sets the status of the record referencing a message
func (r *RecipientRepository) UpdateStatusByMessage(ctx context.Context, messageID primitive.ObjectID, status models.RecipientStatus, errorDetail string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"messageId": messageID}, bson.M{"$set": bson.M{
		"status":      status,
		"errorDetail": errorDetail,
		"updatedAt":   time.Now(),
	}})
	return err
}

// CountByCampaign counts all recipients attached to a campaign
func (r *RecipientRepository) CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"campaignId": campaignID})
}

// CountPending counts recipients not yet dispatched
func (r *RecipientRepository) CountPending(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"campaignId": campaignID, "status": models.RecipientStatusPending})
}

// NextPosition returns the next dispatch position for a campaign
func (r *RecipientRepository) NextPosition(ctx context.Context, campaignID primitive.ObjectID) (int, error) {
	opts := options.FindOne().SetSort(bson.M{"position": -1})
	var last models.CampaignRecipient
	err := r.collection.FindOne(ctx, bson.M{"campaignId": campaignID}, opts).Decode(&last)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Position + 1, nil
}
