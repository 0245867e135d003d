package models

import "time"

// RunStatus is the terminal state of a flow run. Runs have no intermediate
// states because execution is synchronous and single-attempt.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// FlowRun is the immutable audit record of one flow execution. Failed runs
// always store an empty output, since their side effects were rolled back.
type FlowRun struct {
	ID        string         `json:"id"`
	FlowID    string         `json:"flow_id"`
	Status    RunStatus      `json:"status"`
	Input     map[string]any `json:"input"`
	Output    map[string]any `json:"output"`
	Error     *string        `json:"error"`
	CreatedAt time.Time      `json:"created_at"`
}

// RunStep records the outcome of a single executed action node, in
// execution order.
type RunStep struct {
	NodeID    string  `json:"node_id"`
	Label     string  `json:"label"`
	Operation string  `json:"operation"`
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	EntryID   *string `json:"entry_id,omitempty"`
}

// RunStepStatusOK is the status of every step that completed. A failing step
// aborts the run instead of being recorded.
const RunStepStatusOK = "ok"
