package models

import "time"

// EntryStatus mirrors the content subsystem's publication state.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "draft"
	EntryStatusPublished EntryStatus = "published"
)

// ValidEntryStatus reports whether the value is a known entry status.
func ValidEntryStatus(status EntryStatus) bool {
	return status == EntryStatusDraft || status == EntryStatusPublished
}

// Option is a site-wide key/value setting. Flows create or overwrite options
// through the upsert_option action; the settings panel owns them otherwise.
type Option struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentType is a named collection of entries, referenced by slug from
// create_entry action configs.
type ContentType struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContentEntry is a row in a content type, created by the create_entry
// action. Slugs are unique within their content type.
type ContentEntry struct {
	ID            string         `json:"id"`
	ContentTypeID string         `json:"content_type_id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Status        EntryStatus    `json:"status"`
	OrderIndex    int            `json:"order_index"`
	Data          map[string]any `json:"data"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
