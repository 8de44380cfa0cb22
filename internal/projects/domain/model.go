package domain

import (
	"encoding/json"
	"time"
)

// Project is the canonical record for an ingested submission. Exactly one
// repository identifier is assigned at publish time and never changes.
type Project struct {
	ID                int64           `json:"id"`
	OwnerUserID       int64           `json:"owner_user_id"`
	OriginalRepoURL   string          `json:"original_repo_url,omitempty"`
	RepoFullName      string          `json:"repo"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category,omitempty"`
	Languages         []string        `json:"languages,omitempty"`
	ReasonHalted      string          `json:"reason_halted,omitempty"`
	DocumentationURL  string          `json:"documentation_url,omitempty"`
	DemoURL           string          `json:"demo_url,omitempty"`
	S3ObjectKey       string          `json:"s3_object_key,omitempty"`
	S3ObjectURL       string          `json:"s3_object_url,omitempty"`
	SourceType        string          `json:"source_type"`
	AISummary         string          `json:"ai_summary,omitempty"`
	AIHealth          json.RawMessage `json:"ai_health,omitempty"`
	AINextSteps       json.RawMessage `json:"ai_next_steps,omitempty"`
	AILastGeneratedAt *time.Time      `json:"ai_last_generated_at,omitempty"`
	Keywords          []string        `json:"keywords,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AIReport is one immutable entry in a project's analysis history.
type AIReport struct {
	ID        int64           `json:"id"`
	ProjectID int64           `json:"project_id"`
	Report    json.RawMessage `json:"report"`
	CreatedAt time.Time       `json:"created_at"`
}

// Adoption records a fork of an existing project by a new owner.
type Adoption struct {
	ID            int64     `json:"id"`
	ProjectID     int64     `json:"project_id"`
	AdopterUserID int64     `json:"adopter_user_id"`
	ForkFullName  string    `json:"fork"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summary is the listing projection of a project.
type Summary struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	RepoFullName string    `json:"repo"`
	AISummary    string    `json:"ai_summary,omitempty"`
	Keywords     []string  `json:"keywords,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
