// Package events defines the notifications published after flow runs.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every flow run event. Subscribers filter by event type.
const Topic = "lode.flow.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowRunSucceededEvent EventType = "flow.run.succeeded"
	FlowRunFailedEvent    EventType = "flow.run.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FlowRunSucceeded is published after a run commits. RunID is empty when the
// caller asked for the run not to be recorded.
type FlowRunSucceeded struct {
	BaseEvent

	RunID     string `json:"run_id,omitempty"`
	FlowSlug  string `json:"flow_slug"`
	Event     string `json:"event"`
	Persisted bool   `json:"persisted"`
	Steps     int    `json:"steps"`
}

func (e FlowRunSucceeded) GetType() EventType {
	return FlowRunSucceededEvent
}

// FlowRunFailed is published after a run fails and its side effects are
// rolled back. RunID points at the failed run row when one was recorded.
type FlowRunFailed struct {
	BaseEvent

	RunID     string `json:"run_id,omitempty"`
	FlowSlug  string `json:"flow_slug"`
	Event     string `json:"event"`
	Persisted bool   `json:"persisted"`
	Error     string `json:"error"`
}

func (e FlowRunFailed) GetType() EventType {
	return FlowRunFailedEvent
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
		Metadata:  make(map[string]any),
	}
}
