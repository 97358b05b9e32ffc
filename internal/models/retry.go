package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RetryEntry is a scheduled re-attempt for a failed message send. Removed on
// success or when Attempt reaches MaxAttempts, at which point an operator
// notification is raised.
type RetryEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	MessageID     primitive.ObjectID `bson:"messageId" json:"messageId"`
	ContactID     primitive.ObjectID `bson:"contactId" json:"contactId"`
	CampaignID    primitive.ObjectID `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	Attempt       int                `bson:"attempt" json:"attempt"`
	MaxAttempts   int                `bson:"maxAttempts" json:"maxAttempts"`
	NextAttemptAt time.Time          `bson:"nextAttemptAt" json:"nextAttemptAt"`
	LastError     string             `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RetryStats summarises the pending retry backlog
type RetryStats struct {
	Pending      int64 `json:"pending"`
	DueNow       int64 `json:"dueNow"`
	FirstAttempt int64 `json:"firstAttempt"`
	FinalAttempt int64 `json:"finalAttempt"`
}

// NotificationSeverity grades operator notifications
type NotificationSeverity string

const (
	SeverityLow    NotificationSeverity = "LOW"
	SeverityMedium NotificationSeverity = "MEDIUM"
	SeverityHigh   NotificationSeverity = "HIGH"
)

// OperatorNotification is an operator-facing alert, e.g. a message whose
// retries are exhausted. Acknowledge/dismiss mutate visibility only.
type OperatorNotification struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Title        string               `bson:"title" json:"title"`
	Detail       string               `bson:"detail,omitempty" json:"detail,omitempty"`
	Severity     NotificationSeverity `bson:"severity" json:"severity"`
	MessageID    primitive.ObjectID   `bson:"messageId,omitempty" json:"messageId,omitempty"`
	ContactID    primitive.ObjectID   `bson:"contactId,omitempty" json:"contactId,omitempty"`
	CampaignID   primitive.ObjectID   `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	Acknowledged bool                 `bson:"acknowledged" json:"acknowledged"`
	Dismissed    bool                 `bson:"dismissed" json:"dismissed"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}
