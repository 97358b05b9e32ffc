package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageStatus is the delivery state of an individual outbound message
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "SENT"
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusRead      MessageStatus = "READ"
	MessageStatusFailed    MessageStatus = "FAILED"
)

// Message represents one outbound message sent (or attempted) to a contact
type Message struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ContactID         primitive.ObjectID `bson:"contactId" json:"contactId"`
	CampaignID        primitive.ObjectID `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	Phone             string             `bson:"phone" json:"phone"`
	Channel           Channel            `bson:"channel" json:"channel"`
	Body              string             `bson:"body,omitempty" json:"body,omitempty"`
	TemplateName      string             `bson:"templateName,omitempty" json:"templateName,omitempty"`
	TemplateParams    []string           `bson:"templateParams,omitempty" json:"templateParams,omitempty"`
	MediaURL          string             `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	MediaType         string             `bson:"mediaType,omitempty" json:"mediaType,omitempty"`
	Status            MessageStatus      `bson:"status" json:"status"`
	ErrorDetail       string             `bson:"errorDetail,omitempty" json:"errorDetail,omitempty"`
	ProviderMessageID string             `bson:"providerMessageId,omitempty" json:"providerMessageId,omitempty"`
	SentBy            primitive.ObjectID `bson:"sentBy,omitempty" json:"sentBy,omitempty"`
	SentAt            time.Time          `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	DeliveredAt       time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MessageStatistics aggregates message outcomes visible to a user
type MessageStatistics struct {
	Total     int64 `json:"total"`
	Sent      int64 `json:"sent"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}
