package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lodecms/lode/pkg/eventbus"
	"github.com/lodecms/lode/pkg/events"
	"github.com/lodecms/lode/pkg/flow"
	"github.com/lodecms/lode/pkg/models"
)

// TriggerRequest carries the invocation payload for a flow run.
type TriggerRequest struct {
	Event   string         `json:"event"`
	Input   map[string]any `json:"input"`
	Context map[string]any `json:"context"`
}

// TriggerResult is the uniform outcome of a flow run. Failed executions are
// results, not errors: Ok is false, Output carries the message under
// "error", and Steps is empty because the side effects were rolled back.
type TriggerResult struct {
	Ok       bool              `json:"ok"`
	FlowID   string            `json:"flow_id"`
	FlowSlug string            `json:"flow_slug"`
	Status   models.RunStatus  `json:"status"`
	Event    string            `json:"event"`
	Output   map[string]any    `json:"output"`
	Steps    []*models.RunStep `json:"steps"`
	RunID    *string           `json:"run_id"`
}

// RunTest executes a flow of any status without recording a run. Admins use
// it to exercise drafts before activating them.
func (s *Flows) RunTest(ctx context.Context, flowID string, req TriggerRequest) (*TriggerResult, error) {
	target, err := s.Get(ctx, flowID)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, target, req, false)
}

// TriggerBySlug executes an active flow on behalf of an anonymous caller.
// The limiter is consulted first and the attempt counts against callerKey
// even when the slug resolves to nothing, so probing costs budget. Every
// execution is recorded as a run.
func (s *Flows) TriggerBySlug(ctx context.Context, slugValue string, req TriggerRequest, callerKey string) (*TriggerResult, error) {
	if s.limiter != nil {
		limited, retryAfter, err := s.limiter.IsLimited(ctx, callerKey)
		if err != nil {
			s.logger.WarnContext(ctx, "rate limiter check failed, allowing request", "error", err)
		} else if limited {
			return nil, &RateLimitedError{RetryAfter: retryAfter}
		}

		err = s.limiter.Hit(ctx, callerKey)
		if err != nil {
			s.logger.WarnContext(ctx, "rate limiter hit failed", "error", err)
		}
	}

	flowSlug := strings.ToLower(strings.TrimSpace(slugValue))
	if flowSlug == "" {
		return nil, NewValidationError("TriggerFlow", "slug_required", "Flow slug is required", ErrFlowSlugRequired)
	}

	target, err := s.store.Flows().GetBySlug(ctx, flowSlug)
	if err != nil {
		return nil, err
	}

	if target == nil {
		return nil, ErrFlowNotFound
	}

	if !target.IsActive() {
		return nil, NewValidationError("TriggerFlow", "flow_not_active", "Flow is not active", ErrFlowNotActive)
	}

	return s.run(ctx, target, req, true)
}

// run executes the flow definition inside one unit of work. On success the
// optional run record commits together with every action side effect. On
// failure everything rolls back and the failed run record, when requested,
// is written in a fresh transaction so the audit trail survives.
func (s *Flows) run(ctx context.Context, target *models.Flow, req TriggerRequest, persistRun bool) (*TriggerResult, error) {
	event := resolveEvent(req.Event, target.TriggerEvent)

	input := req.Input
	if input == nil {
		input = map[string]any{}
	}

	contextData := req.Context
	if contextData == nil {
		contextData = map[string]any{}
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, execErr := s.engine.Execute(ctx, uow, &target.Definition, event, input, contextData)
	if execErr != nil {
		_ = uow.Rollback()

		return s.failRun(ctx, target, event, input, execErr, persistRun)
	}

	var runID *string

	if persistRun {
		record := &models.FlowRun{
			FlowID: target.ID,
			Status: models.RunStatusSuccess,
			Input:  input,
			Output: result.Output,
		}

		err = uow.Runs().Create(ctx, record)
		if err != nil {
			_ = uow.Rollback()

			return s.failRun(ctx, target, event, input, fmt.Errorf("failed to record run: %w", err), persistRun)
		}

		runID = &record.ID
	}

	err = uow.Commit()
	if err != nil {
		return s.failRun(ctx, target, event, input, fmt.Errorf("failed to commit run: %w", err), persistRun)
	}

	s.logger.InfoContext(ctx, "flow run succeeded",
		"flow_id", target.ID, "slug", target.Slug, "event", event, "steps", len(result.Steps))

	if persistRun {
		succeeded := events.FlowRunSucceeded{
			BaseEvent: events.NewBaseEvent(events.FlowRunSucceededEvent, target.ID),
			RunID:     derefOrEmpty(runID),
			FlowSlug:  target.Slug,
			Event:     event,
			Persisted: true,
			Steps:     len(result.Steps),
		}
		s.publishRunEvent(ctx, target.ID, succeeded)
	}

	return &TriggerResult{
		Ok:       true,
		FlowID:   target.ID,
		FlowSlug: target.Slug,
		Status:   models.RunStatusSuccess,
		Event:    event,
		Output:   result.Output,
		Steps:    result.Steps,
		RunID:    runID,
	}, nil
}

// failRun turns an execution error into a failed TriggerResult. Messages
// from BadRequest errors pass through verbatim; anything else is wrapped so
// internal error text stays recognizable as unexpected.
func (s *Flows) failRun(ctx context.Context, target *models.Flow, event string, input map[string]any, execErr error, persistRun bool) (*TriggerResult, error) {
	errorText := execErr.Error()
	if errorText == "" {
		errorText = "Flow execution failed"
	}

	message := errorText
	if !flow.IsBadRequest(execErr) {
		message = "Flow execution failed: " + errorText
	}

	s.logger.WarnContext(ctx, "flow run failed",
		"flow_id", target.ID, "slug", target.Slug, "event", event, "error", errorText)

	var runID *string

	if persistRun {
		uow, err := s.store.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}

		record := &models.FlowRun{
			FlowID: target.ID,
			Status: models.RunStatusFailed,
			Input:  input,
			Output: map[string]any{},
			Error:  &errorText,
		}

		err = uow.Runs().Create(ctx, record)
		if err != nil {
			_ = uow.Rollback()

			return nil, fmt.Errorf("failed to record failed run: %w", err)
		}

		err = uow.Commit()
		if err != nil {
			return nil, fmt.Errorf("failed to commit failed run: %w", err)
		}

		runID = &record.ID

		failed := events.FlowRunFailed{
			BaseEvent: events.NewBaseEvent(events.FlowRunFailedEvent, target.ID),
			RunID:     derefOrEmpty(runID),
			FlowSlug:  target.Slug,
			Event:     event,
			Persisted: true,
			Error:     errorText,
		}
		s.publishRunEvent(ctx, target.ID, failed)
	}

	return &TriggerResult{
		Ok:       false,
		FlowID:   target.ID,
		FlowSlug: target.Slug,
		Status:   models.RunStatusFailed,
		Event:    event,
		Output:   map[string]any{"error": message},
		Steps:    []*models.RunStep{},
		RunID:    runID,
	}, nil
}

// publishRunEvent is best-effort: a broken bus must never fail a run that
// already committed.
func (s *Flows) publishRunEvent(ctx context.Context, flowID string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	err := s.bus.Publish(ctx, flowID, event)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish run event", "flow_id", flowID, "error", err)
	}
}

// resolveEvent picks the first non-empty candidate, lowercased: the request
// event, then the flow's configured trigger event, then the default.
func resolveEvent(requested, configured string) string {
	event := strings.ToLower(strings.TrimSpace(requested))
	if event == "" {
		event = strings.ToLower(strings.TrimSpace(configured))
	}

	if event == "" {
		event = models.DefaultTriggerEvent
	}

	return event
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}
