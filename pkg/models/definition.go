package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// NodeKind distinguishes trigger entry points from executable actions.
type NodeKind string

const (
	NodeKindTrigger NodeKind = "trigger"
	NodeKindAction  NodeKind = "action"
)

// Action operations supported by the execution engine.
const (
	OperationNoop         = "noop"
	OperationSetOutput    = "set_output"
	OperationUpsertOption = "upsert_option"
	OperationCreateEntry  = "create_entry"
)

// operationList is the sorted operation set used in validation messages.
const operationList = "create_entry, noop, set_output, upsert_option"

// KnownOperation reports whether the operation is supported by the engine.
func KnownOperation(op string) bool {
	switch op {
	case OperationNoop, OperationSetOutput, OperationUpsertOption, OperationCreateEntry:
		return true
	default:
		return false
	}
}

// ErrInvalidDefinition is the root of every definition validation failure.
var ErrInvalidDefinition = errors.New("invalid flow definition")

// Node ids start with an alphanumeric and continue with [A-Za-z0-9_-], at
// most 64 characters total.
var nodeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// FlowNode is a single vertex in a flow definition graph. Trigger nodes gate
// execution on an event name; action nodes carry an operation plus its
// configuration, which may contain template placeholders.
type FlowNode struct {
	ID     string         `json:"id"     validate:"required,max=64"`
	Kind   NodeKind       `json:"kind"   validate:"required,oneof=trigger action"`
	Label  string         `json:"label"`
	Config map[string]any `json:"config"`
}

func (n *FlowNode) IsTrigger() bool {
	return n.Kind == NodeKindTrigger
}

func (n *FlowNode) IsAction() bool {
	return n.Kind == NodeKindAction
}

// Operation returns the normalized action operation configured on the node,
// defaulting to noop.
func (n *FlowNode) Operation() string {
	op := strings.ToLower(strings.TrimSpace(configString(n.Config, "operation")))
	if op == "" {
		return OperationNoop
	}

	return op
}

// EventFilter returns the normalized event name a trigger node listens for.
// Empty means the node matches any event.
func (n *FlowNode) EventFilter() string {
	return strings.ToLower(strings.TrimSpace(configString(n.Config, "event")))
}

// DisplayLabel returns the node label, falling back to the node id.
func (n *FlowNode) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}

	return n.ID
}

func configString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}

	value, ok := config[key]
	if !ok || value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}

// FlowEdge is a directed connection between two nodes.
type FlowEdge struct {
	Source string `json:"source" validate:"required,max=64"`
	Target string `json:"target" validate:"required,max=64"`
}

// DefinitionVersion is the only definition schema version in existence.
const DefinitionVersion = 1

// FlowDefinition is the versioned graph of nodes and edges executed by the
// engine.
type FlowDefinition struct {
	Version int        `json:"version"`
	Nodes   []FlowNode `json:"nodes"`
	Edges   []FlowEdge `json:"edges"`
}

// Normalize cleans node ids, labels, and config values in place. It runs
// before Validate on every create and update. An omitted version defaults to
// the current schema version.
func (d *FlowDefinition) Normalize() {
	if d.Version == 0 {
		d.Version = DefinitionVersion
	}

	for i := range d.Nodes {
		node := &d.Nodes[i]

		node.ID = strings.TrimSpace(node.ID)

		node.Label = strings.TrimSpace(node.Label)
		if runes := []rune(node.Label); len(runes) > MaxFlowTitleLen {
			node.Label = string(runes[:MaxFlowTitleLen])
		}

		if node.Config == nil {
			node.Config = map[string]any{}
		}

		switch node.Kind {
		case NodeKindAction:
			node.Config["operation"] = node.Operation()
		case NodeKindTrigger:
			if event := node.EventFilter(); event != "" {
				node.Config["event"] = event
			}
		}
	}
}

// Validate checks the structural invariants of the definition: version,
// node id grammar and uniqueness, operation membership and config shape,
// at least one trigger, edge referential integrity, and acyclicity.
// Definitions that fail validation are never persisted.
func (d *FlowDefinition) Validate() error {
	if d.Version != DefinitionVersion {
		return fmt.Errorf("%w: version must be 1", ErrInvalidDefinition)
	}

	seen := make(map[string]struct{}, len(d.Nodes))
	triggers := 0

	for i := range d.Nodes {
		node := &d.Nodes[i]

		if !nodeIDPattern.MatchString(node.ID) {
			return fmt.Errorf(
				"%w: node id '%s' must match [a-zA-Z0-9_-] and start with an alphanumeric",
				ErrInvalidDefinition, node.ID,
			)
		}

		if _, dup := seen[node.ID]; dup {
			return fmt.Errorf("%w: duplicate node id '%s'", ErrInvalidDefinition, node.ID)
		}

		seen[node.ID] = struct{}{}

		switch node.Kind {
		case NodeKindTrigger:
			triggers++
		case NodeKindAction:
			if op := node.Operation(); !KnownOperation(op) {
				return fmt.Errorf(
					"%w: action node '%s' operation must be one of: %s",
					ErrInvalidDefinition, node.ID, operationList,
				)
			}

			if err := validateActionConfig(node); err != nil {
				return fmt.Errorf("%w: action node '%s' config: %s", ErrInvalidDefinition, node.ID, err.Error())
			}
		default:
			return fmt.Errorf("%w: node '%s' kind must be trigger or action", ErrInvalidDefinition, node.ID)
		}
	}

	if triggers == 0 {
		return fmt.Errorf("%w: must include at least one trigger node", ErrInvalidDefinition)
	}

	for _, edge := range d.Edges {
		if _, ok := seen[edge.Source]; !ok {
			return fmt.Errorf("%w: edge source '%s' does not exist", ErrInvalidDefinition, edge.Source)
		}

		if _, ok := seen[edge.Target]; !ok {
			return fmt.Errorf("%w: edge target '%s' does not exist", ErrInvalidDefinition, edge.Target)
		}
	}

	if cycleNode := d.findCycle(); cycleNode != "" {
		return fmt.Errorf("%w: contains a cycle through node '%s'", ErrInvalidDefinition, cycleNode)
	}

	return nil
}

// findCycle runs Kahn's algorithm over the graph and returns a node id on a
// cycle, or "" when the graph is acyclic.
func (d *FlowDefinition) findCycle() string {
	inDegree := make(map[string]int, len(d.Nodes))
	outgoing := make(map[string][]string, len(d.Nodes))

	for i := range d.Nodes {
		inDegree[d.Nodes[i].ID] = 0
	}

	for _, edge := range d.Edges {
		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	queue := make([]string, 0, len(d.Nodes))

	for i := range d.Nodes {
		if inDegree[d.Nodes[i].ID] == 0 {
			queue = append(queue, d.Nodes[i].ID)
		}
	}

	processed := 0

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++

		for _, next := range outgoing[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if processed == len(d.Nodes) {
		return ""
	}

	// Report the first unprocessed node in definition order.
	for i := range d.Nodes {
		if inDegree[d.Nodes[i].ID] > 0 {
			return d.Nodes[i].ID
		}
	}

	return ""
}
