package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusScheduled CampaignStatus = "SCHEDULED"
	CampaignStatusRunning   CampaignStatus = "RUNNING"
	CampaignStatusPaused    CampaignStatus = "PAUSED"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusCancelled CampaignStatus = "CANCELLED"
)

// Channel is the delivery channel for a campaign or message
type Channel string

const (
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelEmail    Channel = "EMAIL"
)

// Campaign represents a batch send of one message or template to a set of
// contacts over a channel. Counters are mutated exclusively by the campaign
// executor via atomic increments.
type Campaign struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name              string             `bson:"name" json:"name"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	Channel           Channel            `bson:"channel" json:"channel"`
	MessageBody       string             `bson:"messageBody,omitempty" json:"messageBody,omitempty"`
	TemplateName      string             `bson:"templateName,omitempty" json:"templateName,omitempty"`
	TemplateParams    []string           `bson:"templateParams,omitempty" json:"templateParams,omitempty"`
	MediaURL          string             `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	MediaType         string             `bson:"mediaType,omitempty" json:"mediaType,omitempty"`
	Status            CampaignStatus     `bson:"status" json:"status"`
	ScheduledAt       time.Time          `bson:"scheduledAt,omitempty" json:"scheduledAt,omitempty"`
	StartedAt         time.Time          `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt       time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	MessagesPerMinute int                `bson:"messagesPerMinute" json:"messagesPerMinute"`
	TotalContacts     int                `bson:"totalContacts" json:"totalContacts"`
	SentCount         int                `bson:"sentCount" json:"sentCount"`
	DeliveredCount    int                `bson:"deliveredCount" json:"deliveredCount"`
	FailedCount       int                `bson:"failedCount" json:"failedCount"`
	PendingCount      int                `bson:"pendingCount" json:"pendingCount"`
	CreatedBy         primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsTemplated reports whether the campaign sends a named gateway template
// rather than a free-form body.
func (c *Campaign) IsTemplated() bool {
	return c.TemplateName != ""
}

// CampaignProgress is the derived progress view returned to callers polling
// a running campaign.
type CampaignProgress struct {
	CampaignID     primitive.ObjectID `json:"campaignId"`
	Status         CampaignStatus     `json:"status"`
	TotalContacts  int                `json:"totalContacts"`
	SentCount      int                `json:"sentCount"`
	DeliveredCount int                `json:"deliveredCount"`
	FailedCount    int                `json:"failedCount"`
	PendingCount   int                `json:"pendingCount"`
	Percent        int                `json:"percent"`
	ETAMinutes     int                `json:"etaMinutes"`
}
