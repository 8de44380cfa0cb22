package domain

// Report is the normalized projection of an analysis response. Raw preserves
// the full upstream document; the other fields are the denormalized view
// copied onto the project row.
type Report struct {
	Summary   string         `json:"summary"`
	Health    any            `json:"health,omitempty"`
	NextSteps any            `json:"next_steps,omitempty"`
	Keywords  []string       `json:"keywords,omitempty"`
	Raw       map[string]any `json:"raw"`
}
