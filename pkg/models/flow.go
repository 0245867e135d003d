// Package models defines the core domain models for flow automation.
package models

import "time"

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft    FlowStatus = "draft"    // Editable, runnable only through the admin test endpoint
	FlowStatusActive   FlowStatus = "active"   // Publicly triggerable
	FlowStatusDisabled FlowStatus = "disabled" // Kept for audit, rejects public triggers
)

// ValidFlowStatus reports whether the value is a known flow status.
func ValidFlowStatus(status FlowStatus) bool {
	switch status {
	case FlowStatusDraft, FlowStatusActive, FlowStatusDisabled:
		return true
	default:
		return false
	}
}

// Field limits enforced when flows are created or updated.
const (
	MaxFlowTitleLen       = 200
	MaxFlowDescriptionLen = 500
	MaxTriggerEventLen    = 120
)

// DefaultTriggerEvent is assigned when a flow does not declare its own event.
const DefaultTriggerEvent = "manual"

// Flow is an automation graph managed from the admin panel. Its definition
// executes synchronously whenever the flow is triggered manually, via the
// admin test endpoint, or via the public trigger endpoint.
type Flow struct {
	ID           string         `json:"id"`
	Slug         string         `json:"slug"          validate:"required,max=200"`
	Title        string         `json:"title"         validate:"required,max=200"`
	Description  *string        `json:"description"`
	Status       FlowStatus     `json:"status"`
	TriggerEvent string         `json:"trigger_event"`
	Definition   FlowDefinition `json:"definition"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsActive reports whether the flow accepts public triggers.
func (f *Flow) IsActive() bool {
	return f.Status == FlowStatusActive
}
