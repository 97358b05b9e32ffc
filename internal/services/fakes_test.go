package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crediflow/crm-backend/internal/models"
)

// In-memory repository fakes backing the service tests. They mirror the
// query semantics the services rely on, including the status-guarded
// campaign transition and dispatch ordering by position.

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[primitive.ObjectID]*models.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[primitive.ObjectID]*models.Campaign{}}
}

func (r *fakeCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	clone := *campaign
	r.campaigns[campaign.ID] = &clone
	return nil
}

func (r *fakeCampaignRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *campaign
	return &clone, nil
}

func (r *fakeCampaignRepo) FindByStatus(ctx context.Context, status models.CampaignStatus, page, limit int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, campaign := range r.campaigns {
		if campaign.Status == status {
			clone := *campaign
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) FindAll(ctx context.Context, page, limit int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, campaign := range r.campaigns {
		clone := *campaign
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *campaign
	r.campaigns[campaign.ID] = &clone
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	campaign, ok := r.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if campaign.Status == status {
			campaign.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCampaignRepo) IncrementCounters(ctx context.Context, id primitive.ObjectID, sent, delivered, failed, pending int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	campaign, ok := r.campaigns[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	campaign.SentCount += sent
	campaign.DeliveredCount += delivered
	campaign.FailedCount += failed
	campaign.PendingCount += pending
	return nil
}

func (r *fakeCampaignRepo) SetExecutionStart(ctx context.Context, id primitive.ObjectID, total int, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	campaign, ok := r.campaigns[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	campaign.TotalContacts = total
	campaign.PendingCount = total
	campaign.SentCount = 0
	campaign.DeliveredCount = 0
	campaign.FailedCount = 0
	campaign.StartedAt = startedAt
	return nil
}

func (r *fakeCampaignRepo) SetCompleted(ctx context.Context, id primitive.ObjectID, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign, ok := r.campaigns[id]; ok {
		campaign.CompletedAt = completedAt
	}
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.campaigns)), nil
}

type fakeRecipientRepo struct {
	mu         sync.Mutex
	recipients map[primitive.ObjectID]*models.CampaignRecipient
}

func newFakeRecipientRepo() *fakeRecipientRepo {
	return &fakeRecipientRepo{recipients: map[primitive.ObjectID]*models.CampaignRecipient{}}
}

func (r *fakeRecipientRepo) CreateMany(ctx context.Context, recipients []*models.CampaignRecipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, recipient := range recipients {
		duplicate := false
		for _, existing := range r.recipients {
			if existing.CampaignID == recipient.CampaignID && existing.ContactID == recipient.ContactID {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		if recipient.ID.IsZero() {
			recipient.ID = primitive.NewObjectID()
		}
		clone := *recipient
		r.recipients[recipient.ID] = &clone
	}
	return nil
}

func (r *fakeRecipientRepo) FindPending(ctx context.Context, campaignID primitive.ObjectID, limit int) ([]*models.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CampaignRecipient
	for _, recipient := range r.recipients {
		if recipient.CampaignID == campaignID && recipient.Status == models.RecipientStatusPending {
			clone := *recipient
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRecipientRepo) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]*models.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CampaignRecipient
	for _, recipient := range r.recipients {
		if recipient.CampaignID == campaignID {
			clone := *recipient
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeRecipientRepo) FindByCampaignAndContact(ctx context.Context, campaignID, contactID primitive.ObjectID) (*models.CampaignRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, recipient := range r.recipients {
		if recipient.CampaignID == campaignID && recipient.ContactID == contactID {
			clone := *recipient
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeRecipientRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RecipientStatus, messageID primitive.ObjectID, errorDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	recipient, ok := r.recipients[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	recipient.Status = status
	if !messageID.IsZero() {
		recipient.MessageID = messageID
	}
	recipient.ErrorDetail = errorDetail
	if status == models.RecipientStatusSent {
		recipient.SentAt = time.Now()
	}
	return nil
}

func (r *fakeRecipientRepo) UpdateStatusByMessage(ctx context.Context, messageID primitive.ObjectID, status models.RecipientStatus, errorDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, recipient := range r.recipients {
		if recipient.MessageID == messageID {
			recipient.Status = status
			recipient.ErrorDetail = errorDetail
			return nil
		}
	}
	return nil
}

func (r *fakeRecipientRepo) CountByCampaign(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, recipient := range r.recipients {
		if recipient.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRecipientRepo) CountPending(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, recipient := range r.recipients {
		if recipient.CampaignID == campaignID && recipient.Status == models.RecipientStatusPending {
			n++
		}
	}
	return n, nil
}

func (r *fakeRecipientRepo) NextPosition(ctx context.Context, campaignID primitive.ObjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 0
	for _, recipient := range r.recipients {
		if recipient.CampaignID == campaignID && recipient.Position >= next {
			next = recipient.Position + 1
		}
	}
	return next, nil
}

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[primitive.ObjectID]*models.Contact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: map[primitive.ObjectID]*models.Contact{}}
}

func (r *fakeContactRepo) Create(ctx context.Context, contact *models.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if contact.ID.IsZero() {
		contact.ID = primitive.NewObjectID()
	}
	clone := *contact
	r.contacts[contact.ID] = &clone
	return nil
}

func (r *fakeContactRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact, ok := r.contacts[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *contact
	return &clone, nil
}

func (r *fakeContactRepo) FindByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, contact := range r.contacts {
		if contact.Phone == phone {
			clone := *contact
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeContactRepo) FindAll(ctx context.Context, page, limit int) ([]*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Contact
	for _, contact := range r.contacts {
		clone := *contact
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeContactRepo) FindIDsByAssignee(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []primitive.ObjectID
	for _, contact := range r.contacts {
		if contact.AssignedTo == userID {
			out = append(out, contact.ID)
		}
	}
	return out, nil
}

func (r *fakeContactRepo) Update(ctx context.Context, contact *models.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *contact
	r.contacts[contact.ID] = &clone
	return nil
}

func (r *fakeContactRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts, id)
	return nil
}

func (r *fakeContactRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.contacts)), nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[primitive.ObjectID]*models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: map[primitive.ObjectID]*models.Message{}}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	clone := *message
	r.messages[message.ID] = &clone
	return nil
}

func (r *fakeMessageRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *message
	return &clone, nil
}

func (r *fakeMessageRepo) FindByProviderMessageID(ctx context.Context, providerMessageID string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.messages {
		if message.ProviderMessageID == providerMessageID {
			clone := *message
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeMessageRepo) FindByContact(ctx context.Context, contactID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, message := range r.messages {
		if message.ContactID == contactID {
			clone := *message
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *message
	r.messages[message.ID] = &clone
	return nil
}

func (r *fakeMessageRepo) inScope(message *models.Message, contactIDs []primitive.ObjectID) bool {
	if contactIDs == nil {
		return true
	}
	for _, id := range contactIDs {
		if message.ContactID == id {
			return true
		}
	}
	return false
}

func (r *fakeMessageRepo) CountByStatus(ctx context.Context, status models.MessageStatus, contactIDs []primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, message := range r.messages {
		if message.Status == status && r.inScope(message, contactIDs) {
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, contactIDs []primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, message := range r.messages {
		if r.inScope(message, contactIDs) {
			n++
		}
	}
	return n, nil
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[primitive.ObjectID]*models.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[primitive.ObjectID]*models.Template{}}
}

func (r *fakeTemplateRepo) Create(ctx context.Context, template *models.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	clone := *template
	r.templates[template.ID] = &clone
	return nil
}

func (r *fakeTemplateRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	template, ok := r.templates[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *template
	return &clone, nil
}

func (r *fakeTemplateRepo) FindByName(ctx context.Context, name string) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, template := range r.templates {
		if template.Name == name {
			clone := *template
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeTemplateRepo) FindByStatus(ctx context.Context, status models.TemplateStatus, page, limit int) ([]*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Template
	for _, template := range r.templates {
		if template.Status == status {
			clone := *template
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) FindAll(ctx context.Context, page, limit int) ([]*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Template
	for _, template := range r.templates {
		clone := *template
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, template *models.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *template
	r.templates[template.ID] = &clone
	return nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.templates, id)
	return nil
}

type fakeAutomationRepo struct {
	mu          sync.Mutex
	automations map[primitive.ObjectID]*models.Automation
}

func newFakeAutomationRepo() *fakeAutomationRepo {
	return &fakeAutomationRepo{automations: map[primitive.ObjectID]*models.Automation{}}
}

func (r *fakeAutomationRepo) Create(ctx context.Context, automation *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if automation.ID.IsZero() {
		automation.ID = primitive.NewObjectID()
	}
	clone := *automation
	r.automations[automation.ID] = &clone
	return nil
}

func (r *fakeAutomationRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	automation, ok := r.automations[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *automation
	return &clone, nil
}

func (r *fakeAutomationRepo) FindAll(ctx context.Context, page, limit int) ([]*models.Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Automation
	for _, automation := range r.automations {
		clone := *automation
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeAutomationRepo) FindDueTimeTriggers(ctx context.Context, now time.Time) ([]*models.Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Automation
	for _, automation := range r.automations {
		if automation.IsActive && automation.Trigger.Type == models.TriggerTypeTime &&
			!automation.NextRun.IsZero() && !automation.NextRun.After(now) {
			clone := *automation
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) FindActiveByEventType(ctx context.Context, eventType string) ([]*models.Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Automation
	for _, automation := range r.automations {
		if automation.IsActive && automation.Trigger.Type == models.TriggerTypeEvent &&
			automation.Trigger.EventType == eventType {
			clone := *automation
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) Update(ctx context.Context, automation *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *automation
	r.automations[automation.ID] = &clone
	return nil
}

func (r *fakeAutomationRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.automations, id)
	return nil
}

func (r *fakeAutomationRepo) SetActive(ctx context.Context, id primitive.ObjectID, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if automation, ok := r.automations[id]; ok {
		automation.IsActive = isActive
	}
	return nil
}

func (r *fakeAutomationRepo) RecordRun(ctx context.Context, id primitive.ObjectID, success bool, lastRun, nextRun time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	automation, ok := r.automations[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	automation.TotalRuns++
	if success {
		automation.SuccessfulRuns++
	}
	automation.LastRun = lastRun
	if !nextRun.IsZero() {
		automation.NextRun = nextRun
	}
	return nil
}

type fakeExecutionRepo struct {
	mu         sync.Mutex
	executions map[string]*models.Execution
}

func newFakeExecutionRepo() *fakeExecutionRepo {
	return &fakeExecutionRepo{executions: map[string]*models.Execution{}}
}

func (r *fakeExecutionRepo) Create(ctx context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *execution
	r.executions[execution.ID] = &clone
	return nil
}

func (r *fakeExecutionRepo) FindByID(ctx context.Context, id string) (*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	execution, ok := r.executions[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *execution
	return &clone, nil
}

func (r *fakeExecutionRepo) FindByStatus(ctx context.Context, status models.ExecutionStatus) ([]*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Execution
	for _, execution := range r.executions {
		if execution.Status == status {
			clone := *execution
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeExecutionRepo) FindByAutomation(ctx context.Context, automationID primitive.ObjectID, page, limit int) ([]*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Execution
	for _, execution := range r.executions {
		if execution.AutomationID == automationID {
			clone := *execution
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeExecutionRepo) Update(ctx context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *execution
	r.executions[execution.ID] = &clone
	return nil
}

type fakeRetryRepo struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*models.RetryEntry
}

func newFakeRetryRepo() *fakeRetryRepo {
	return &fakeRetryRepo{entries: map[primitive.ObjectID]*models.RetryEntry{}}
}

func (r *fakeRetryRepo) Create(ctx context.Context, entry *models.RetryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	clone := *entry
	r.entries[entry.ID] = &clone
	return nil
}

func (r *fakeRetryRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *entry
	return &clone, nil
}

func (r *fakeRetryRepo) FindByMessageID(ctx context.Context, messageID primitive.ObjectID) (*models.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.MessageID == messageID {
			clone := *entry
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeRetryRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RetryEntry
	for _, entry := range r.entries {
		if !entry.NextAttemptAt.After(now) {
			clone := *entry
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRetryRepo) FindAll(ctx context.Context) ([]*models.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RetryEntry
	for _, entry := range r.entries {
		clone := *entry
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRetryRepo) Update(ctx context.Context, entry *models.RetryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries[entry.ID] = &clone
	return nil
}

func (r *fakeRetryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

func (r *fakeRetryRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeRetryRepo) CountDue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, entry := range r.entries {
		if !entry.NextAttemptAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r *fakeRetryRepo) CountByAttempt(ctx context.Context, attempt int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, entry := range r.entries {
		if entry.Attempt == attempt {
			n++
		}
	}
	return n, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[primitive.ObjectID]*models.OperatorNotification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: map[primitive.ObjectID]*models.OperatorNotification{}}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.OperatorNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	clone := *notification
	r.notifications[notification.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.OperatorNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.notifications[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *notification
	return &clone, nil
}

func (r *fakeNotificationRepo) FindVisible(ctx context.Context, page, limit int) ([]*models.OperatorNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OperatorNotification
	for _, notification := range r.notifications {
		if !notification.Dismissed {
			clone := *notification
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) SetAcknowledged(ctx context.Context, id primitive.ObjectID, acknowledged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notification, ok := r.notifications[id]; ok {
		notification.Acknowledged = acknowledged
	}
	return nil
}

func (r *fakeNotificationRepo) SetDismissed(ctx context.Context, id primitive.ObjectID, dismissed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notification, ok := r.notifications[id]; ok {
		notification.Dismissed = dismissed
	}
	return nil
}

func (r *fakeNotificationRepo) all() []*models.OperatorNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OperatorNotification
	for _, notification := range r.notifications {
		clone := *notification
		out = append(out, &clone)
	}
	return out
}
