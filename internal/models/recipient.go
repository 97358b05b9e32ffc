package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecipientStatus is the per-contact delivery state within a campaign.
// Transitions only move forward (PENDING -> SENT -> DELIVERED or
// PENDING -> FAILED); a retry resets FAILED back to PENDING.
type RecipientStatus string

const (
	RecipientStatusPending   RecipientStatus = "PENDING"
	RecipientStatusSent      RecipientStatus = "SENT"
	RecipientStatusDelivered RecipientStatus = "DELIVERED"
	RecipientStatusFailed    RecipientStatus = "FAILED"
)

// CampaignRecipient tracks the send outcome for one contact within one
// campaign. A contact appears at most once per campaign; Position fixes the
// dispatch order.
type CampaignRecipient struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CampaignID  primitive.ObjectID `bson:"campaignId" json:"campaignId"`
	ContactID   primitive.ObjectID `bson:"contactId" json:"contactId"`
	Position    int                `bson:"position" json:"position"`
	Status      RecipientStatus    `bson:"status" json:"status"`
	MessageID   primitive.ObjectID `bson:"messageId,omitempty" json:"messageId,omitempty"`
	ErrorDetail string             `bson:"errorDetail,omitempty" json:"errorDetail,omitempty"`
	SentAt      time.Time          `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
