package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/pkg/apperrors"
	"github.com/crediflow/crm-backend/pkg/gateway"
)

type executorEnv struct {
	campaigns     *fakeCampaignRepo
	recipients    *fakeRecipientRepo
	contacts      *fakeContactRepo
	messages      *fakeMessageRepo
	templates     *fakeTemplateRepo
	retries       *fakeRetryRepo
	notifications *fakeNotificationRepo
	gateway       *gateway.MockClient
	executor      *CampaignExecutor
	retryManager  *RetryManager
}

func newExecutorEnv(t *testing.T) *executorEnv {
	t.Helper()

	env := &executorEnv{
		campaigns:     newFakeCampaignRepo(),
		recipients:    newFakeRecipientRepo(),
		contacts:      newFakeContactRepo(),
		messages:      newFakeMessageRepo(),
		templates:     newFakeTemplateRepo(),
		retries:       newFakeRetryRepo(),
		notifications: newFakeNotificationRepo(),
		gateway:       gateway.NewMockClient(),
	}

	messageService := NewMessageService(env.contacts, env.messages, env.recipients, env.campaigns, env.gateway)
	env.retryManager = NewRetryManager(env.retries, env.notifications, messageService, 3, 2*time.Minute, 30*time.Minute)
	env.executor = NewCampaignExecutor(env.campaigns, env.recipients, env.templates, messageService, env.retryManager, 25, 60)
	env.executor.pace = func(ctx context.Context, d time.Duration) {}
	return env
}

func (env *executorEnv) addContacts(t *testing.T, n int) []primitive.ObjectID {
	t.Helper()
	ids := make([]primitive.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		contact := &models.Contact{
			FirstName: fmt.Sprintf("Contact%d", i),
			Phone:     fmt.Sprintf("+91981234%04d", i),
			IsActive:  true,
		}
		require.NoError(t, env.contacts.Create(context.Background(), contact))
		ids = append(ids, contact.ID)
	}
	return ids
}

func (env *executorEnv) newCampaign(t *testing.T, contactIDs []primitive.ObjectID) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		Name:        "August loan offers",
		Channel:     models.ChannelWhatsApp,
		MessageBody: "Your loan is pre-approved",
	}
	require.NoError(t, env.executor.CreateCampaign(context.Background(), campaign))
	if len(contactIDs) > 0 {
		added, err := env.executor.AddRecipients(context.Background(), campaign.ID, contactIDs)
		require.NoError(t, err)
		require.Equal(t, len(contactIDs), added)
	}
	return campaign
}

func (env *executorEnv) waitTerminal(t *testing.T, id primitive.ObjectID) *models.Campaign {
	t.Helper()
	var campaign *models.Campaign
	require.Eventually(t, func() bool {
		var err error
		campaign, err = env.campaigns.FindByID(context.Background(), id)
		if err != nil {
			return false
		}
		switch campaign.Status {
		case models.CampaignStatusCompleted, models.CampaignStatusCancelled, models.CampaignStatusPaused:
			return true
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
	return campaign
}

func TestExecuteCampaignDispatchesAllRecipients(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 3)
	campaign := env.newCampaign(t, contactIDs)

	require.NoError(t, env.executor.ExecuteCampaign(context.Background(), campaign.ID))

	final := env.waitTerminal(t, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, final.Status)
	assert.Equal(t, 3, final.TotalContacts)
	assert.Equal(t, 3, final.SentCount)
	assert.Equal(t, 0, final.FailedCount)
	assert.Equal(t, 0, final.PendingCount)
	assert.Equal(t, 3, env.gateway.SendCount())
	require.Eventually(t, func() bool {
		reloaded, err := env.campaigns.FindByID(context.Background(), campaign.ID)
		return err == nil && !reloaded.CompletedAt.IsZero()
	}, 5*time.Second, 5*time.Millisecond)

	recipients, err := env.recipients.FindByCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	for _, recipient := range recipients {
		assert.Equal(t, models.RecipientStatusSent, recipient.Status)
		assert.False(t, recipient.MessageID.IsZero())
	}
}

func TestExecuteCampaignRecordsFailureAndSchedulesRetry(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 3)
	campaign := env.newCampaign(t, contactIDs)

	// Second recipient's phone rejects the send
	failing, err := env.contacts.FindByID(context.Background(), contactIDs[1])
	require.NoError(t, err)
	env.gateway.FailPhones[failing.Phone] = "provider rejected"

	require.NoError(t, env.executor.ExecuteCampaign(context.Background(), campaign.ID))

	final := env.waitTerminal(t, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, final.Status)
	assert.Equal(t, 2, final.SentCount)
	assert.Equal(t, 1, final.FailedCount)
	assert.Equal(t, 0, final.PendingCount)

	recipient, err := env.recipients.FindByCampaignAndContact(context.Background(), campaign.ID, contactIDs[1])
	require.NoError(t, err)
	assert.Equal(t, models.RecipientStatusFailed, recipient.Status)
	assert.Equal(t, "provider rejected", recipient.ErrorDetail)

	entries, err := env.retries.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempt)
	assert.Equal(t, campaign.ID, entries[0].CampaignID)
	assert.Equal(t, contactIDs[1], entries[0].ContactID)
}

func TestExecuteCampaignRejectsUnapprovedTemplate(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 2)

	require.NoError(t, env.templates.Create(context.Background(), &models.Template{
		Name:    "pending_offer",
		Content: "Hi {{1}}",
		Status:  models.TemplateStatusPending,
	}))

	campaign := &models.Campaign{
		Name:         "Templated",
		Channel:      models.ChannelWhatsApp,
		TemplateName: "pending_offer",
	}
	require.NoError(t, env.executor.CreateCampaign(context.Background(), campaign))
	_, err := env.executor.AddRecipients(context.Background(), campaign.ID, contactIDs)
	require.NoError(t, err)

	err = env.executor.ExecuteCampaign(context.Background(), campaign.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))

	// All-or-nothing: nothing was sent, nothing recorded
	reloaded, err := env.campaigns.FindByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, reloaded.Status)
	assert.Equal(t, 0, env.gateway.SendCount())

	pending, err := env.recipients.CountPending(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

func TestExecuteCampaignRejectsMissingTemplate(t *testing.T) {
	env := newExecutorEnv(t)
	campaign := &models.Campaign{
		Name:         "Templated",
		Channel:      models.ChannelWhatsApp,
		TemplateName: "nope",
	}
	require.NoError(t, env.executor.CreateCampaign(context.Background(), campaign))

	err := env.executor.ExecuteCampaign(context.Background(), campaign.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestExecuteCampaignInvalidFromState(t *testing.T) {
	env := newExecutorEnv(t)
	campaign := env.newCampaign(t, nil)

	_, err := env.campaigns.UpdateStatus(context.Background(), campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusCompleted)
	require.NoError(t, err)

	err = env.executor.ExecuteCampaign(context.Background(), campaign.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestPauseIsNoOpOutsideRunning(t *testing.T) {
	env := newExecutorEnv(t)
	campaign := env.newCampaign(t, nil)

	changed, err := env.executor.PauseCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	reloaded, err := env.campaigns.FindByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, reloaded.Status)
}

func TestResumeSkipsAlreadySentRecipients(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 4)
	campaign := env.newCampaign(t, contactIDs)

	// Simulate a campaign paused halfway: first two already sent
	require.NoError(t, env.campaigns.SetExecutionStart(context.Background(), campaign.ID, 4, time.Now()))
	_, err := env.campaigns.UpdateStatus(context.Background(), campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusPaused)
	require.NoError(t, err)
	require.NoError(t, env.campaigns.IncrementCounters(context.Background(), campaign.ID, 2, 0, 0, -2))
	recipients, err := env.recipients.FindByCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	for _, recipient := range recipients[:2] {
		require.NoError(t, env.recipients.UpdateStatus(context.Background(), recipient.ID,
			models.RecipientStatusSent, primitive.NewObjectID(), ""))
	}

	changed, err := env.executor.ResumeCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.True(t, changed)

	final := env.waitTerminal(t, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, final.Status)
	assert.Equal(t, 4, final.SentCount)
	assert.Equal(t, 0, final.PendingCount)
	// Only the two still-pending recipients hit the gateway
	assert.Equal(t, 2, env.gateway.SendCount())
}

func TestScheduledCampaignStartsWhenDue(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 2)

	campaign := &models.Campaign{
		Name:        "Festival offers",
		Channel:     models.ChannelWhatsApp,
		MessageBody: "Festive rates this week",
		ScheduledAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, env.executor.CreateCampaign(context.Background(), campaign))
	assert.Equal(t, models.CampaignStatusScheduled, campaign.Status)
	_, err := env.executor.AddRecipients(context.Background(), campaign.ID, contactIDs)
	require.NoError(t, err)

	started, err := env.executor.ExecuteDueScheduled(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, started)
	reloaded, err := env.campaigns.FindByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, reloaded.Status)
	assert.Equal(t, 0, env.gateway.SendCount())

	started, err = env.executor.ExecuteDueScheduled(context.Background(), campaign.ScheduledAt.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, []primitive.ObjectID{campaign.ID}, started)

	final := env.waitTerminal(t, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, final.Status)
	assert.Equal(t, 2, final.SentCount)
	assert.Equal(t, 2, env.gateway.SendCount())

	// A later sweep finds nothing left to start
	started, err = env.executor.ExecuteDueScheduled(context.Background(), campaign.ScheduledAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, started)
}

// gatedCampaignRepo lets a test hold the dispatch loop between reading a
// PAUSED campaign snapshot and acting on it.
type gatedCampaignRepo struct {
	*fakeCampaignRepo
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (r *gatedCampaignRepo) arm() {
	r.mu.Lock()
	r.armed = true
	r.mu.Unlock()
}

func (r *gatedCampaignRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	campaign, err := r.fakeCampaignRepo.FindByID(ctx, id)
	r.mu.Lock()
	hold := r.armed && err == nil && campaign.Status == models.CampaignStatusPaused
	if hold {
		r.armed = false
	}
	r.mu.Unlock()
	if hold {
		r.entered <- struct{}{}
		<-r.release
	}
	return campaign, err
}

func TestResumeDuringLoopWindDownKeepsDispatching(t *testing.T) {
	repo := &gatedCampaignRepo{
		fakeCampaignRepo: newFakeCampaignRepo(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	recipients := newFakeRecipientRepo()
	contacts := newFakeContactRepo()
	gw := gateway.NewMockClient()
	messageService := NewMessageService(contacts, newFakeMessageRepo(), recipients, repo, gw)
	retryManager := NewRetryManager(newFakeRetryRepo(), newFakeNotificationRepo(), messageService, 3, 2*time.Minute, 30*time.Minute)
	executor := NewCampaignExecutor(repo, recipients, newFakeTemplateRepo(), messageService, retryManager, 25, 60)
	executor.pace = func(ctx context.Context, d time.Duration) {}

	contact := &models.Contact{FirstName: "Meera", Phone: "+919812345100", IsActive: true}
	require.NoError(t, contacts.Create(context.Background(), contact))

	campaign := &models.Campaign{Name: "Paused mid-run", Channel: models.ChannelWhatsApp, MessageBody: "Offer"}
	require.NoError(t, executor.CreateCampaign(context.Background(), campaign))
	_, err := executor.AddRecipients(context.Background(), campaign.ID, []primitive.ObjectID{contact.ID})
	require.NoError(t, err)
	require.NoError(t, repo.SetExecutionStart(context.Background(), campaign.ID, 1, time.Now()))
	_, err = repo.UpdateStatus(context.Background(), campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusPaused)
	require.NoError(t, err)

	// An old loop is winding down: it holds the guard and is about to act
	// on the PAUSED snapshot it just read.
	repo.arm()
	require.True(t, executor.running.acquire(campaign.ID))
	go executor.runDispatchLoop(campaign.ID)
	<-repo.entered

	// The resume lands before the old loop releases the guard, so it
	// cannot start a fresh loop. The old loop must carry on instead.
	changed, err := executor.ResumeCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.True(t, changed)

	close(repo.release)

	require.Eventually(t, func() bool {
		reloaded, err := repo.FindByID(context.Background(), campaign.ID)
		return err == nil && reloaded.Status == models.CampaignStatusCompleted
	}, 5*time.Second, 5*time.Millisecond)
	pending, err := recipients.CountPending(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
	assert.Equal(t, 1, gw.SendCount())
}

func TestCancelIsTerminal(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 2)
	campaign := env.newCampaign(t, contactIDs)

	_, err := env.campaigns.UpdateStatus(context.Background(), campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusPaused)
	require.NoError(t, err)

	changed, err := env.executor.CancelCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Remaining recipients stay pending, and nothing restarts the campaign
	pending, err := env.recipients.CountPending(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	changed, err = env.executor.ResumeCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	err = env.executor.ExecuteCampaign(context.Background(), campaign.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestAddRecipientsAfterExecutionRejected(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 2)
	campaign := env.newCampaign(t, contactIDs[:1])

	_, err := env.campaigns.UpdateStatus(context.Background(), campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusRunning)
	require.NoError(t, err)

	_, err = env.executor.AddRecipients(context.Background(), campaign.ID, contactIDs[1:])
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
}

func TestAddRecipientsSkipsDuplicates(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 2)
	campaign := env.newCampaign(t, contactIDs)

	_, err := env.executor.AddRecipients(context.Background(), campaign.ID, contactIDs)
	require.NoError(t, err)

	total, err := env.recipients.CountByCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestGetProgressDerivations(t *testing.T) {
	env := newExecutorEnv(t)
	campaign := env.newCampaign(t, nil)

	// Zero totals derive to zero, not a division error
	progress, err := env.executor.GetProgress(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Percent)
	assert.Equal(t, 0, progress.ETAMinutes)

	require.NoError(t, env.campaigns.SetExecutionStart(context.Background(), campaign.ID, 4, time.Now()))
	require.NoError(t, env.campaigns.IncrementCounters(context.Background(), campaign.ID, 2, 0, 1, -3))

	progress, err = env.executor.GetProgress(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, progress.Percent)
	assert.Equal(t, 4, progress.TotalContacts)
	assert.Equal(t, 2, progress.SentCount)
	assert.Equal(t, 1, progress.FailedCount)
	assert.Equal(t, 1, progress.PendingCount)
	// 1 pending at 60 per minute rounds down to 0 minutes
	assert.Equal(t, 0, progress.ETAMinutes)
}

func TestCountersStayConsistentWithRecipients(t *testing.T) {
	env := newExecutorEnv(t)
	contactIDs := env.addContacts(t, 10)
	campaign := env.newCampaign(t, contactIDs)
	env.gateway.FailEvery = 4

	require.NoError(t, env.executor.ExecuteCampaign(context.Background(), campaign.ID))
	final := env.waitTerminal(t, campaign.ID)

	assert.Equal(t, models.CampaignStatusCompleted, final.Status)
	assert.Equal(t, final.TotalContacts, final.SentCount+final.FailedCount+final.PendingCount)

	recipients, err := env.recipients.FindByCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	sent, failed := 0, 0
	for _, recipient := range recipients {
		switch recipient.Status {
		case models.RecipientStatusSent:
			sent++
		case models.RecipientStatusFailed:
			failed++
		}
	}
	assert.Equal(t, final.SentCount, sent)
	assert.Equal(t, final.FailedCount, failed)
}
