// Package flow executes flow definitions: breadth-first traversal from the
// matched trigger nodes, template resolution per action config, and the
// action handlers themselves.
package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lodecms/lode/pkg/models"
	"github.com/lodecms/lode/pkg/otelhelper"
	"github.com/lodecms/lode/pkg/persistence"
	"github.com/lodecms/lode/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxVisitedNodes caps how many nodes a single run may process. Save-time
// validation rejects cycles, but definitions stored before that check
// existed can still reach the engine, so it keeps its own guard.
const maxVisitedNodes = 1000

// Result is what a completed traversal produces: the executed action steps
// in order and the final output accumulator.
type Result struct {
	Steps  []*models.RunStep
	Output map[string]any
}

// Engine walks a flow definition breadth-first and executes its action
// nodes. It owns no transaction: every write goes through the unit of work
// the caller hands in, and the caller decides whether to commit.
type Engine struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	handlers map[string]ActionHandler
}

// NewEngine creates an engine with the built-in action handlers registered.
func NewEngine(logger *slog.Logger, tracer trace.Tracer) *Engine {
	return &Engine{
		logger: logger.With("module", "flow_engine"),
		tracer: tracer,
		handlers: map[string]ActionHandler{
			models.OperationNoop:         noopHandler{},
			models.OperationSetOutput:    setOutputHandler{},
			models.OperationUpsertOption: upsertOptionHandler{},
			models.OperationCreateEntry:  createEntryHandler{},
		},
	}
}

// Execute traverses the definition for one event. The event must already be
// lowercased. The input and context maps are read-only template roots; the
// output accumulator starts empty and is shared by every action.
//
// The first handler error aborts the traversal and is returned as-is; the
// caller is responsible for rolling back the unit of work.
func (e *Engine) Execute(
	ctx context.Context,
	uow persistence.UnitOfWork,
	definition *models.FlowDefinition,
	event string,
	input map[string]any,
	contextData map[string]any,
) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "flow.execute",
		attribute.String(otelhelper.EventKey, event),
	)
	defer span.End()

	nodeByID := make(map[string]*models.FlowNode, len(definition.Nodes))
	outgoing := make(map[string][]string, len(definition.Nodes))

	for i := range definition.Nodes {
		node := &definition.Nodes[i]
		nodeByID[node.ID] = node
	}

	for _, edge := range definition.Edges {
		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
	}

	// Seed the frontier with every trigger whose filter accepts the event,
	// in definition order.
	queue := make([]string, 0, len(definition.Nodes))

	for i := range definition.Nodes {
		node := &definition.Nodes[i]
		if !node.IsTrigger() {
			continue
		}

		if filter := node.EventFilter(); filter == "" || filter == "*" || filter == event {
			queue = append(queue, node.ID)
		}
	}

	if len(queue) == 0 {
		err := NewBadRequestError("No trigger node matched event '%s'", event)
		otelhelper.SetError(span, err)

		return nil, err
	}

	scope := template.Scope{
		Input:   input,
		Context: contextData,
		Output:  map[string]any{},
	}

	steps := make([]*models.RunStep, 0)
	visited := make(map[string]struct{}, len(definition.Nodes))
	processed := 0

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		if _, seen := visited[nodeID]; seen {
			continue
		}

		visited[nodeID] = struct{}{}

		node, ok := nodeByID[nodeID]
		if !ok {
			continue
		}

		if node.IsAction() {
			step, err := e.executeAction(ctx, uow, node, scope)
			if err != nil {
				otelhelper.SetError(span, err)

				return nil, err
			}

			steps = append(steps, step)
		}

		for _, next := range outgoing[nodeID] {
			if _, seen := visited[next]; !seen {
				queue = append(queue, next)
			}
		}

		processed++
		if processed > maxVisitedNodes {
			err := NewBadRequestError("Flow execution stopped: graph too deep or cyclic")
			otelhelper.SetError(span, err)

			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("lode.run.steps", len(steps)))

	return &Result{Steps: steps, Output: scope.Output}, nil
}

// executeAction resolves the node config against the current scope, picks
// the handler for the resolved operation, and runs it.
func (e *Engine) executeAction(ctx context.Context, uow persistence.UnitOfWork, node *models.FlowNode, scope template.Scope) (*models.RunStep, error) {
	config, ok := template.Render(node.Config, scope).(map[string]any)
	if !ok {
		config = map[string]any{}
	}

	// The operation is read from the resolved config, so it may itself have
	// been templated.
	operation := strings.ToLower(strings.TrimSpace(configString(config, "operation")))
	if operation == "" {
		operation = models.OperationNoop
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "flow.node "+node.ID,
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeOperationKey, operation),
	)
	defer span.End()

	handler, ok := e.handlers[operation]
	if !ok {
		err := NewBadRequestError("Action node '%s' has unsupported operation '%s'", node.ID, operation)
		otelhelper.SetError(span, err)

		return nil, err
	}

	logger := e.logger.With("node_id", node.ID, "operation", operation)
	logger.DebugContext(ctx, "executing action node")

	step, err := handler.Execute(ctx, ActionContext{
		Node:   node,
		Config: config,
		Output: scope.Output,
		UoW:    uow,
	}, logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return step, nil
}
