package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lodecms/lode/pkg/models"
	"github.com/lodecms/lode/pkg/persistence"
	"github.com/lodecms/lode/pkg/slug"
)

// ActionContext carries everything one node execution may touch: the
// template-resolved config, the run's shared output accumulator, and the
// unit of work every write must ride on.
type ActionContext struct {
	Node   *models.FlowNode
	Config map[string]any
	Output map[string]any
	UoW    persistence.UnitOfWork
}

// ActionHandler executes a single action node and reports its step record.
// Handlers mutate the output accumulator and write through the unit of work;
// they never commit.
type ActionHandler interface {
	Execute(ctx context.Context, action ActionContext, logger *slog.Logger) (*models.RunStep, error)
}

func newStep(node *models.FlowNode, operation string) *models.RunStep {
	return &models.RunStep{
		NodeID:    node.ID,
		Label:     node.DisplayLabel(),
		Operation: operation,
		Status:    models.RunStepStatusOK,
	}
}

// configString reads a config value as a string the way the admin UI writes
// them: strings pass through, nil and missing become "", anything else is
// formatted.
func configString(config map[string]any, key string) string {
	value, ok := config[key]
	if !ok || value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}

// coerceInt accepts the shapes order_index arrives in after template
// resolution. A non-numeric string is a hard error, not a bad request, so it
// fails the run like any other runtime fault.
func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}

		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}

		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid order_index %q", v)
		}

		return n, nil
	default:
		return 0, fmt.Errorf("invalid order_index %v", value)
	}
}

type noopHandler struct{}

func (noopHandler) Execute(_ context.Context, action ActionContext, _ *slog.Logger) (*models.RunStep, error) {
	step := newStep(action.Node, models.OperationNoop)
	step.Message = "No-op"

	return step, nil
}

type setOutputHandler struct{}

func (setOutputHandler) Execute(_ context.Context, action ActionContext, _ *slog.Logger) (*models.RunStep, error) {
	step := newStep(action.Node, models.OperationSetOutput)

	// Bulk form wins when values is a map, even an empty one.
	if values, ok := action.Config["values"].(map[string]any); ok {
		for key, value := range values {
			action.Output[key] = value
		}

		step.Message = fmt.Sprintf("Updated output values (%d)", len(values))

		return step, nil
	}

	key := strings.TrimSpace(configString(action.Config, "key"))
	if key == "" {
		return nil, NewBadRequestError("Action node '%s' set_output requires config.key", action.Node.ID)
	}

	action.Output[key] = action.Config["value"]
	step.Message = fmt.Sprintf("Set output[%s]", key)

	return step, nil
}

type upsertOptionHandler struct{}

func (upsertOptionHandler) Execute(ctx context.Context, action ActionContext, logger *slog.Logger) (*models.RunStep, error) {
	step := newStep(action.Node, models.OperationUpsertOption)

	key := strings.TrimSpace(configString(action.Config, "key"))
	if key == "" {
		return nil, NewBadRequestError("Action node '%s' upsert_option requires config.key", action.Node.ID)
	}

	created, err := action.UoW.Options().Upsert(ctx, key, action.Config["value"])
	if err != nil {
		return nil, fmt.Errorf("failed to upsert option '%s': %w", key, err)
	}

	if created {
		step.Message = fmt.Sprintf("Created option '%s'", key)
	} else {
		step.Message = fmt.Sprintf("Updated option '%s'", key)
	}

	logger.DebugContext(ctx, "upserted option", "key", key, "created", created)

	return step, nil
}

type createEntryHandler struct{}

func (createEntryHandler) Execute(ctx context.Context, action ActionContext, logger *slog.Logger) (*models.RunStep, error) {
	step := newStep(action.Node, models.OperationCreateEntry)

	typeSlug := strings.ToLower(strings.TrimSpace(configString(action.Config, "content_type_slug")))
	if typeSlug == "" {
		return nil, NewBadRequestError("Action node '%s' create_entry requires config.content_type_slug", action.Node.ID)
	}

	contentType, err := action.UoW.Content().TypeBySlug(ctx, typeSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up content type '%s': %w", typeSlug, err)
	}

	if contentType == nil {
		return nil, NewBadRequestError("Content type '%s' not found for action node '%s'", typeSlug, action.Node.ID)
	}

	title := strings.TrimSpace(configString(action.Config, "title"))
	if title == "" {
		title = "Flow entry"
	}

	baseSlug := strings.TrimSpace(configString(action.Config, "slug"))
	if baseSlug == "" {
		baseSlug = title
	}

	entrySlug, err := uniqueEntrySlug(ctx, action.UoW, contentType.ID, baseSlug)
	if err != nil {
		return nil, err
	}

	status := models.EntryStatus(strings.ToLower(strings.TrimSpace(configString(action.Config, "status"))))
	if !models.ValidEntryStatus(status) {
		status = models.EntryStatusDraft
	}

	data, ok := action.Config["data"].(map[string]any)
	if !ok {
		data = map[string]any{}
	}

	orderIndex, err := coerceInt(action.Config["order_index"])
	if err != nil {
		return nil, err
	}

	var publishedAt *time.Time

	if status == models.EntryStatusPublished {
		now := time.Now().UTC()
		publishedAt = &now
	}

	entry := &models.ContentEntry{
		ContentTypeID: contentType.ID,
		Title:         title,
		Slug:          entrySlug,
		Status:        status,
		OrderIndex:    orderIndex,
		Data:          data,
		PublishedAt:   publishedAt,
	}

	err = action.UoW.Content().CreateEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry '%s': %w", entrySlug, err)
	}

	step.Message = fmt.Sprintf("Created entry '%s' in '%s'", entrySlug, contentType.Slug)
	step.EntryID = &entry.ID

	if outputKey := strings.TrimSpace(configString(action.Config, "output_key")); outputKey != "" {
		action.Output[outputKey] = map[string]any{
			"entry_id":     entry.ID,
			"slug":         entry.Slug,
			"content_type": contentType.Slug,
		}
	}

	logger.DebugContext(ctx, "created entry", "slug", entrySlug, "content_type", contentType.Slug)

	return step, nil
}

// uniqueEntrySlug slugifies base and makes it unique within the content type
// by appending -2..-999, then a random hex suffix as the last resort.
func uniqueEntrySlug(ctx context.Context, uow persistence.UnitOfWork, contentTypeID, base string) (string, error) {
	candidate := slug.Make(base)

	exists, err := uow.Content().EntrySlugExists(ctx, contentTypeID, candidate)
	if err != nil {
		return "", fmt.Errorf("failed to check entry slug: %w", err)
	}

	if !exists {
		return candidate, nil
	}

	for i := 2; i < 1000; i++ {
		suffixed := fmt.Sprintf("%s-%d", candidate, i)

		exists, err := uow.Content().EntrySlugExists(ctx, contentTypeID, suffixed)
		if err != nil {
			return "", fmt.Errorf("failed to check entry slug: %w", err)
		}

		if !exists {
			return suffixed, nil
		}
	}

	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]

	return candidate + "-" + random, nil
}
