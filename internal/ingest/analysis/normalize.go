package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
)

// Normalize projects a heterogeneous analysis response into the shape the
// rest of the system relies on. The full document is preserved in Raw.
func Normalize(raw map[string]any) domain.Report {
	report := domain.Report{Raw: raw}

	summary, summaryDoc := normalizeSummary(raw)
	report.Summary = summary
	report.Health = raw["health"]
	report.Keywords = normalizeKeywords(raw["keywords"])
	report.NextSteps = normalizeNextSteps(raw, summaryDoc)

	return report
}

// normalizeSummary derives a string projection of the summary field, which
// may be a plain string or a structured document. When structured, the
// document itself is returned as well so nested fields remain reachable.
func normalizeSummary(raw map[string]any) (string, map[string]any) {
	v, ok := raw["summary"]
	if !ok {
		v = raw["project_summary"]
	}

	switch s := v.(type) {
	case string:
		return s, nil
	case map[string]any:
		for _, key := range []string{"overview", "text", "description"} {
			if text, ok := s[key].(string); ok && text != "" {
				return text, s
			}
		}
		if encoded, err := json.Marshal(s); err == nil {
			return string(encoded), s
		}
		return "", s
	default:
		return "", nil
	}
}

// normalizeKeywords flattens a list or single value into an ordered list.
func normalizeKeywords(v any) []string {
	switch kw := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(kw))
		for _, item := range kw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case []string:
		return kw
	case string:
		if kw == "" {
			return nil
		}
		return []string{kw}
	default:
		return []string{fmt.Sprint(kw)}
	}
}

// normalizeNextSteps picks the first present source in a fixed precedence
// order: top-level next_steps, nextSteps, recommendations, then next_steps
// nested inside a structured summary.
func normalizeNextSteps(raw, summaryDoc map[string]any) any {
	for _, key := range []string{"next_steps", "nextSteps", "recommendations"} {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	if summaryDoc != nil {
		if v, ok := summaryDoc["next_steps"]; ok && v != nil {
			return v
		}
	}
	return nil
}
