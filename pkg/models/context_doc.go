package models

import "time"

// ContextDocSourceType identifies which pipeline authored a ContextDoc.
type ContextDocSourceType string

const (
	SourceDatabricks ContextDocSourceType = "databricks"
	SourceConfigAPIs ContextDocSourceType = "config_apis"
)

// ContextDocStatus tracks whether a doc is the live version or has been
// superseded by a later run (§3 ContextDoc).
type ContextDocStatus string

const (
	DocStatusActive     ContextDocStatus = "active"
	DocStatusSuperseded ContextDocStatus = "superseded"
)

// ContextDoc is one authored markdown document (§3 ContextDoc).
type ContextDoc struct {
	ID           string               `json:"id"`
	SourceType   ContextDocSourceType `json:"source_type"`
	SourceRunID  string               `json:"source_run_id"`
	OrgID        string               `json:"org_id"`
	DocKey       string               `json:"doc_key"` // e.g. "01_MASTER"
	DocName      string               `json:"doc_name"`
	DocContent   string               `json:"doc_content"`
	Model        string               `json:"model"`
	Provider     string               `json:"provider"`
	SystemPrompt string               `json:"system_prompt"`
	Payload      string               `json:"payload"` // audit copy of what was sent
	TokenCount   int                  `json:"token_count"`
	Status       ContextDocStatus     `json:"status"`
	Warnings     []string             `json:"warnings,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}
