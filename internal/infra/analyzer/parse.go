package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedmill/internal/domain/entity"
)

// rawAnalysis mirrors the JSON schema prompted for in spec §4.6, using the
// wire field names, decoded into the domain entity.Analysis shape.
type rawAnalysis struct {
	Language           string   `json:"language"`
	PrimaryLocation    string   `json:"primary_location"`
	Completeness       string   `json:"completeness"`
	ContentQuality     string   `json:"content_quality"`
	EventSummaryPoints []string `json:"event_summary_points"`
	ThematicKeywords   []string `json:"thematic_keywords"`
	TopicTags          []string `json:"topic_tags"`
	KeyEntities        []string `json:"key_entities"`
	ContentFocus       []string `json:"content_focus"`
}

// parseAnalysis extracts the JSON object from the model's raw text response
// (tolerating surrounding prose or markdown fences some models add despite
// instructions) and validates it against the analysis schema.
func parseAnalysis(raw string) (entity.Analysis, error) {
	jsonBody := extractJSONObject(raw)
	if jsonBody == "" {
		return entity.Analysis{}, fmt.Errorf("%w: no JSON object found", ErrInvalidSchema)
	}

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(jsonBody), &parsed); err != nil {
		return entity.Analysis{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	completeness := entity.Completeness(parsed.Completeness)
	switch completeness {
	case entity.CompletenessComplete, entity.CompletenessPartialUseful, entity.CompletenessPartialUseless:
	default:
		return entity.Analysis{}, fmt.Errorf("%w: invalid completeness %q", ErrInvalidSchema, parsed.Completeness)
	}

	quality := entity.ContentQuality(parsed.ContentQuality)
	switch quality {
	case entity.ContentQualityOK, entity.ContentQualityLow, entity.ContentQualityJunk:
	default:
		return entity.Analysis{}, fmt.Errorf("%w: invalid content_quality %q", ErrInvalidSchema, parsed.ContentQuality)
	}

	return entity.Analysis{
		Language:           parsed.Language,
		PrimaryLocation:    parsed.PrimaryLocation,
		Completeness:       completeness,
		ContentQuality:     quality,
		EventSummaryPoints: parsed.EventSummaryPoints,
		ThematicKeywords:   parsed.ThematicKeywords,
		TopicTags:          parsed.TopicTags,
		KeyEntities:        parsed.KeyEntities,
		ContentFocus:       parsed.ContentFocus,
	}, nil
}

// extractJSONObject returns the substring spanning the first '{' to its
// matching closing brace, or "" if none is found.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
