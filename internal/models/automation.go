package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerType distinguishes time-based from event-based automation triggers
type TriggerType string

const (
	TriggerTypeTime  TriggerType = "TIME"
	TriggerTypeEvent TriggerType = "EVENT"
)

// TriggerFrequency is the recurrence of a time trigger
type TriggerFrequency string

const (
	FrequencyDaily   TriggerFrequency = "DAILY"
	FrequencyWeekly  TriggerFrequency = "WEEKLY"
	FrequencyMonthly TriggerFrequency = "MONTHLY"
	FrequencyCron    TriggerFrequency = "CRON"
)

// Trigger is a tagged variant: time triggers carry frequency/time/days,
// event triggers carry an event type plus AND-combined conditions.
type Trigger struct {
	Type       TriggerType      `bson:"type" json:"type"`
	Frequency  TriggerFrequency `bson:"frequency,omitempty" json:"frequency,omitempty"`
	Time       string           `bson:"time,omitempty" json:"time,omitempty"` // HH:MM
	Days       []int            `bson:"days,omitempty" json:"days,omitempty"` // weekly: 0=Sunday..6; monthly: day of month
	Timezone   string           `bson:"timezone,omitempty" json:"timezone,omitempty"`
	CronExpr   string           `bson:"cronExpr,omitempty" json:"cronExpr,omitempty"`
	EventType  string           `bson:"eventType,omitempty" json:"eventType,omitempty"`
	Conditions []Condition      `bson:"conditions,omitempty" json:"conditions,omitempty"`
}

// Condition is a single predicate over an event payload field. All conditions
// on a trigger must hold for it to fire.
type Condition struct {
	Field    string      `bson:"field" json:"field"`
	Operator string      `bson:"operator" json:"operator"` // eq, neq, gt, gte, lt, lte, contains
	Value    interface{} `bson:"value" json:"value"`
}

// ActionType identifies what an automation action does when it runs
type ActionType string

const (
	ActionSendMessage     ActionType = "SEND_MESSAGE"
	ActionExecuteCampaign ActionType = "EXECUTE_CAMPAIGN"
	ActionNotify          ActionType = "NOTIFY"
)

// Action is one step of an automation, executed in sequence
type Action struct {
	Type         ActionType         `bson:"type" json:"type"`
	ContactID    primitive.ObjectID `bson:"contactId,omitempty" json:"contactId,omitempty"`
	CampaignID   primitive.ObjectID `bson:"campaignId,omitempty" json:"campaignId,omitempty"`
	Channel      Channel            `bson:"channel,omitempty" json:"channel,omitempty"`
	MessageBody  string             `bson:"messageBody,omitempty" json:"messageBody,omitempty"`
	TemplateName string             `bson:"templateName,omitempty" json:"templateName,omitempty"`
	Params       []string           `bson:"params,omitempty" json:"params,omitempty"`
	Title        string             `bson:"title,omitempty" json:"title,omitempty"`
	Detail       string             `bson:"detail,omitempty" json:"detail,omitempty"`
}

// Automation pairs a trigger with a sequence of actions
type Automation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Trigger        Trigger            `bson:"trigger" json:"trigger"`
	Actions        []Action           `bson:"actions" json:"actions"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	TotalRuns      int                `bson:"totalRuns" json:"totalRuns"`
	SuccessfulRuns int                `bson:"successfulRuns" json:"successfulRuns"`
	LastRun        time.Time          `bson:"lastRun,omitempty" json:"lastRun,omitempty"`
	NextRun        time.Time          `bson:"nextRun,omitempty" json:"nextRun,omitempty"`
	CreatedBy      primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ExecutionStatus is the lifecycle state of one automation run
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// ActionResult records the outcome of one action within an execution
type ActionResult struct {
	Type        ActionType `bson:"type" json:"type"`
	Success     bool       `bson:"success" json:"success"`
	ErrorDetail string     `bson:"errorDetail,omitempty" json:"errorDetail,omitempty"`
	RanAt       time.Time  `bson:"ranAt" json:"ranAt"`
}

// Execution is one firing instance of an automation. The ID doubles as the
// task handle returned to callers; immutable once terminal.
type Execution struct {
	ID            string             `bson:"_id" json:"id"`
	AutomationID  primitive.ObjectID `bson:"automationId" json:"automationId"`
	Status        ExecutionStatus    `bson:"status" json:"status"`
	StartedAt     time.Time          `bson:"startedAt" json:"startedAt"`
	CompletedAt   time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	ActionResults []ActionResult     `bson:"actionResults,omitempty" json:"actionResults,omitempty"`
	Errors        []string           `bson:"errors,omitempty" json:"errors,omitempty"`
}
