// Package web provides the HTTP layer of the flow API: admin CRUD, run
// history, the admin test runner, and the public trigger endpoint.
package web

import "github.com/lodecms/lode/pkg/models"

// CreateFlowRequest is the request body for creating a new flow. Slug and
// definition are mandatory; everything else takes server-side defaults.
type CreateFlowRequest struct {
	Slug         string                `json:"slug"                    validate:"required,max=200"`
	Title        string                `json:"title"`
	Description  *string               `json:"description,omitempty"`
	Status       string                `json:"status,omitempty"`
	TriggerEvent string                `json:"trigger_event,omitempty"`
	Definition   models.FlowDefinition `json:"definition"              validate:"required"`
}

// UpdateFlowRequest is the request body for updating an existing flow. All
// fields are optional to support partial updates; the slug is fixed at
// creation and cannot be changed.
type UpdateFlowRequest struct {
	Title        *string                `json:"title,omitempty"`
	Description  *string                `json:"description,omitempty"`
	Status       *string                `json:"status,omitempty"`
	TriggerEvent *string                `json:"trigger_event,omitempty"`
	Definition   *models.FlowDefinition `json:"definition,omitempty"`
}

// RunFlowRequest is the optional request body for the admin test runner and
// the public trigger endpoint. An absent body runs the flow with its
// configured event and empty data.
type RunFlowRequest struct {
	Event   string         `json:"event,omitempty"`
	Input   map[string]any `json:"input,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}
