package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact represents a lead or customer reachable by the messaging pipeline
type Contact struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName  string             `bson:"firstName" json:"firstName"`
	LastName   string             `bson:"lastName" json:"lastName"`
	Phone      string             `bson:"phone" json:"phone"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	LeadSource string             `bson:"leadSource,omitempty" json:"leadSource,omitempty"`
	LoanType   string             `bson:"loanType,omitempty" json:"loanType,omitempty"`
	AssignedTo primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	IsActive   bool               `bson:"isActive" json:"isActive"`
	Tags       []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
