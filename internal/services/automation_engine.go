package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
	"github.com/crediflow/crm-backend/pkg/apperrors"
)

// campaignStarter is the slice of CampaignExecutor an automation action needs
type campaignStarter interface {
	ExecuteCampaign(ctx context.Context, id primitive.ObjectID) error
}

// AutomationEngine manages trigger/action automations: CRUD, time trigger
// evaluation, event dispatch and execution of action sequences. Each firing
// produces an execution record whose ID is the caller's task handle.
type AutomationEngine struct {
	automationRepo   repositories.AutomationRepository
	executionRepo    repositories.ExecutionRepository
	notificationRepo repositories.NotificationRepository
	sender           messageSender
	campaigns        campaignStarter

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewAutomationEngine creates a new AutomationEngine
func NewAutomationEngine(
	automationRepo repositories.AutomationRepository,
	executionRepo repositories.ExecutionRepository,
	notificationRepo repositories.NotificationRepository,
	sender messageSender,
	campaigns campaignStarter,
) *AutomationEngine {
	return &AutomationEngine{
		automationRepo:   automationRepo,
		executionRepo:    executionRepo,
		notificationRepo: notificationRepo,
		sender:           sender,
		campaigns:        campaigns,
		cancels:          make(map[string]context.CancelFunc),
	}
}

// CreateAutomation validates and persists an automation. Time triggers get
// their first NextRun computed immediately when active.
func (s *AutomationEngine) CreateAutomation(ctx context.Context, automation *models.Automation) error {
	if automation.Name == "" {
		return apperrors.NewValidation("name", "automation name is required")
	}
	if err := validateTrigger(&automation.Trigger); err != nil {
		return err
	}
	if len(automation.Actions) == 0 {
		return apperrors.NewValidation("actions", "automation needs at least one action")
	}
	for i := range automation.Actions {
		if err := validateAction(&automation.Actions[i]); err != nil {
			return err
		}
	}

	if automation.IsActive && automation.Trigger.Type == models.TriggerTypeTime {
		next, err := nextOccurrence(&automation.Trigger, time.Now())
		if err != nil {
			return err
		}
		automation.NextRun = next
	}
	automation.CreatedAt = time.Now()
	automation.UpdatedAt = time.Now()
	return s.automationRepo.Create(ctx, automation)
}

func validateAction(action *models.Action) error {
	switch action.Type {
	case models.ActionSendMessage:
		if action.ContactID.IsZero() {
			return apperrors.NewValidation("actions", "send action needs a contact")
		}
		if action.MessageBody == "" && action.TemplateName == "" {
			return apperrors.NewValidation("actions", "send action needs a body or template")
		}
	case models.ActionExecuteCampaign:
		if action.CampaignID.IsZero() {
			return apperrors.NewValidation("actions", "campaign action needs a campaign")
		}
	case models.ActionNotify:
		if action.Title == "" {
			return apperrors.NewValidation("actions", "notify action needs a title")
		}
	default:
		return apperrors.NewValidation("actions", fmt.Sprintf("unknown action type %q", action.Type))
	}
	return nil
}

// GetAutomation loads one automation
func (s *AutomationEngine) GetAutomation(ctx context.Context, id primitive.ObjectID) (*models.Automation, error) {
	automation, err := s.automationRepo.FindByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("automation", id.Hex())
		}
		return nil, err
	}
	return automation, nil
}

// ListAutomations returns automations with pagination
func (s *AutomationEngine) ListAutomations(ctx context.Context, page, limit int) ([]*models.Automation, error) {
	return s.automationRepo.FindAll(ctx, page, limit)
}

// UpdateAutomation revalidates and replaces an automation definition
func (s *AutomationEngine) UpdateAutomation(ctx context.Context, automation *models.Automation) error {
	existing, err := s.GetAutomation(ctx, automation.ID)
	if err != nil {
		return err
	}
	if err := validateTrigger(&automation.Trigger); err != nil {
		return err
	}
	for i := range automation.Actions {
		if err := validateAction(&automation.Actions[i]); err != nil {
			return err
		}
	}
	automation.TotalRuns = existing.TotalRuns
	automation.SuccessfulRuns = existing.SuccessfulRuns
	automation.LastRun = existing.LastRun
	automation.CreatedAt = existing.CreatedAt

	if automation.IsActive && automation.Trigger.Type == models.TriggerTypeTime {
		next, err := nextOccurrence(&automation.Trigger, time.Now())
		if err != nil {
			return err
		}
		automation.NextRun = next
	}
	return s.automationRepo.Update(ctx, automation)
}

// DeleteAutomation removes an automation; past execution records are kept
func (s *AutomationEngine) DeleteAutomation(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetAutomation(ctx, id); err != nil {
		return err
	}
	return s.automationRepo.Delete(ctx, id)
}

// ToggleAutomation flips an automation on or off. Re-enabling a time trigger
// recomputes its next run from now, so missed windows do not fire.
func (s *AutomationEngine) ToggleAutomation(ctx context.Context, id primitive.ObjectID, active bool) error {
	automation, err := s.GetAutomation(ctx, id)
	if err != nil {
		return err
	}
	if active && automation.Trigger.Type == models.TriggerTypeTime {
		next, err := nextOccurrence(&automation.Trigger, time.Now())
		if err != nil {
			return err
		}
		automation.IsActive = true
		automation.NextRun = next
		return s.automationRepo.Update(ctx, automation)
	}
	return s.automationRepo.SetActive(ctx, id, active)
}

// EvaluateTimeTriggers fires every active time automation whose next run is
// due at the given instant and advances its schedule. Returns the handles of
// the executions started.
func (s *AutomationEngine) EvaluateTimeTriggers(ctx context.Context, now time.Time) ([]string, error) {
	due, err := s.automationRepo.FindDueTimeTriggers(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load due automations: %w", err)
	}

	handles := make([]string, 0, len(due))
	for _, automation := range due {
		// Advance the schedule before firing so a slow run cannot be
		// picked up again by the next tick.
		next, err := nextOccurrence(&automation.Trigger, now)
		if err != nil {
			log.Printf("[AutomationEngine] automation %s: cannot compute next run: %v", automation.ID.Hex(), err)
			continue
		}
		automation.NextRun = next
		if err := s.automationRepo.Update(ctx, automation); err != nil {
			log.Printf("[AutomationEngine] automation %s: failed to advance schedule: %v", automation.ID.Hex(), err)
			continue
		}

		handle, err := s.startExecution(ctx, automation)
		if err != nil {
			log.Printf("[AutomationEngine] automation %s: failed to start: %v", automation.ID.Hex(), err)
			continue
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// TriggerEvent fires every active automation listening for the event type
// whose conditions all match the payload. Returns execution handles.
func (s *AutomationEngine) TriggerEvent(ctx context.Context, eventType string, payload map[string]interface{}) ([]string, error) {
	if eventType == "" {
		return nil, apperrors.NewValidation("eventType", "event type is required")
	}
	automations, err := s.automationRepo.FindActiveByEventType(ctx, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to load event automations: %w", err)
	}

	handles := make([]string, 0, len(automations))
	for _, automation := range automations {
		if !matchConditions(automation.Trigger.Conditions, payload) {
			continue
		}
		handle, err := s.startExecution(ctx, automation)
		if err != nil {
			log.Printf("[AutomationEngine] automation %s: failed to start: %v", automation.ID.Hex(), err)
			continue
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// ExecuteAutomation fires an automation manually, regardless of its trigger.
// The automation must be active.
func (s *AutomationEngine) ExecuteAutomation(ctx context.Context, id primitive.ObjectID) (string, error) {
	automation, err := s.GetAutomation(ctx, id)
	if err != nil {
		return "", err
	}
	if !automation.IsActive {
		return "", apperrors.NewPrecondition("automation is not active")
	}
	return s.startExecution(ctx, automation)
}

// startExecution creates the execution record and runs the action sequence in
// the background. The returned handle identifies the execution immediately,
// before any action has run.
func (s *AutomationEngine) startExecution(ctx context.Context, automation *models.Automation) (string, error) {
	execution := &models.Execution{
		ID:           uuid.NewString(),
		AutomationID: automation.ID,
		Status:       models.ExecutionStatusRunning,
		StartedAt:    time.Now(),
	}
	if err := s.executionRepo.Create(ctx, execution); err != nil {
		return "", fmt.Errorf("failed to create execution record: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[execution.ID] = cancel
	s.mu.Unlock()

	go s.runActions(runCtx, automation, execution)
	return execution.ID, nil
}

// runActions executes the action sequence in order. The first failing action
// marks the execution FAILED and skips the rest; cancellation between actions
// marks it CANCELLED. In-flight actions always finish and are recorded.
func (s *AutomationEngine) runActions(ctx context.Context, automation *models.Automation, execution *models.Execution) {
	defer func() {
		s.mu.Lock()
		delete(s.cancels, execution.ID)
		s.mu.Unlock()
	}()

	status := models.ExecutionStatusCompleted
	for _, action := range automation.Actions {
		if ctx.Err() != nil {
			status = models.ExecutionStatusCancelled
			break
		}

		result := s.runAction(ctx, automation, &action)
		execution.ActionResults = append(execution.ActionResults, result)
		if !result.Success {
			execution.Errors = append(execution.Errors, result.ErrorDetail)
			status = models.ExecutionStatusFailed
			break
		}
	}

	execution.Status = status
	execution.CompletedAt = time.Now()
	persistCtx := context.Background()
	if err := s.executionRepo.Update(persistCtx, execution); err != nil {
		log.Printf("[AutomationEngine] execution %s: failed to persist outcome: %v", execution.ID, err)
	}

	success := status == models.ExecutionStatusCompleted
	if err := s.automationRepo.RecordRun(persistCtx, automation.ID, success, execution.StartedAt, time.Time{}); err != nil {
		log.Printf("[AutomationEngine] automation %s: failed to record run: %v", automation.ID.Hex(), err)
	}
	log.Printf("[AutomationEngine] execution %s finished with status %s", execution.ID, status)
}

func (s *AutomationEngine) runAction(ctx context.Context, automation *models.Automation, action *models.Action) models.ActionResult {
	result := models.ActionResult{Type: action.Type, RanAt: time.Now()}

	switch action.Type {
	case models.ActionSendMessage:
		outcome, err := s.sender.SendMessage(ctx, SendMessageInput{
			ContactID:    action.ContactID,
			Channel:      action.Channel,
			Body:         action.MessageBody,
			TemplateName: action.TemplateName,
			Params:       action.Params,
			SentBy:       automation.CreatedBy,
		})
		if err != nil {
			result.ErrorDetail = err.Error()
			return result
		}
		if !outcome.Success {
			result.ErrorDetail = outcome.ErrorDetail
			return result
		}
		result.Success = true

	case models.ActionExecuteCampaign:
		if err := s.campaigns.ExecuteCampaign(ctx, action.CampaignID); err != nil {
			result.ErrorDetail = err.Error()
			return result
		}
		result.Success = true

	case models.ActionNotify:
		notification := &models.OperatorNotification{
			Title:     action.Title,
			Detail:    action.Detail,
			Severity:  models.SeverityLow,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.notificationRepo.Create(ctx, notification); err != nil {
			result.ErrorDetail = err.Error()
			return result
		}
		result.Success = true

	default:
		result.ErrorDetail = fmt.Sprintf("unknown action type %q", action.Type)
	}
	return result
}

// RecoverStaleExecutions fails RUNNING executions whose action goroutine no
// longer exists in this process, which happens when a previous process died
// mid-run. Without this they would be reported as running forever with no
// cancel function to reach them. Call at startup before accepting work.
func (s *AutomationEngine) RecoverStaleExecutions(ctx context.Context) (int, error) {
	stale, err := s.executionRepo.FindByStatus(ctx, models.ExecutionStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to load running executions: %w", err)
	}

	recovered := 0
	for _, execution := range stale {
		s.mu.Lock()
		_, alive := s.cancels[execution.ID]
		s.mu.Unlock()
		if alive {
			continue
		}

		execution.Status = models.ExecutionStatusFailed
		execution.Errors = append(execution.Errors, "interrupted by process restart")
		execution.CompletedAt = time.Now()
		if err := s.executionRepo.Update(ctx, execution); err != nil {
			log.Printf("[AutomationEngine] execution %s: failed to mark stale: %v", execution.ID, err)
			continue
		}
		recovered++
	}
	return recovered, nil
}

// CancelExecution requests cancellation of a running execution. Returns false
// when the execution is unknown or already terminal. Already-completed
// in-flight work is not rolled back.
func (s *AutomationEngine) CancelExecution(ctx context.Context, handle string) (bool, error) {
	s.mu.Lock()
	cancel, ok := s.cancels[handle]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	cancel()
	return true, nil
}

// GetExecution loads one execution record by handle
func (s *AutomationEngine) GetExecution(ctx context.Context, handle string) (*models.Execution, error) {
	execution, err := s.executionRepo.FindByID(ctx, handle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("execution", handle)
		}
		return nil, err
	}
	return execution, nil
}

// GetRunningExecutions returns executions that have not reached a terminal
// state yet
func (s *AutomationEngine) GetRunningExecutions(ctx context.Context) ([]*models.Execution, error) {
	return s.executionRepo.FindByStatus(ctx, models.ExecutionStatusRunning)
}

// ListExecutions returns past executions of one automation
func (s *AutomationEngine) ListExecutions(ctx context.Context, automationID primitive.ObjectID, page, limit int) ([]*models.Execution, error) {
	return s.executionRepo.FindByAutomation(ctx, automationID, page, limit)
}
