package enrichment

import (
	"strings"

	"feedmill/internal/domain/entity"
)

// genericLocations are primary_location values treated as "no location",
// discarded before concatenation (spec §4.7 step 3, and §8's boundary case
// "generic location n/a (case-insensitive) is discarded").
var genericLocations = map[string]bool{
	"GLOBAL": true,
	"WORLD":  true,
	"NONE":   true,
	"N/A":    true,
}

// buildSearchText is the pure function behind enrichment step 3a's
// embedding input (spec §4.7): trims and drops empty strings, period-
// terminates each summary point, discards a generic primary_location, and
// concatenates title, location, summary points, entities, keywords, tags,
// and focus in that order. Parts are joined by ". " unless the preceding
// part already ends with a period, in which case a single space is used.
// The result ends with "." iff it is non-empty.
func buildSearchText(title, primaryLocation string, analysis entity.Analysis) string {
	parts := make([]string, 0, 2+len(analysis.EventSummaryPoints)+len(analysis.KeyEntities)+len(analysis.ThematicKeywords)+len(analysis.TopicTags)+len(analysis.ContentFocus))

	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, t)
	}

	if loc := strings.TrimSpace(primaryLocation); loc != "" && !genericLocations[strings.ToUpper(loc)] {
		parts = append(parts, loc)
	}

	for _, point := range analysis.EventSummaryPoints {
		point = strings.TrimSpace(point)
		if point == "" {
			continue
		}
		if !strings.HasSuffix(point, ".") {
			point += "."
		}
		parts = append(parts, point)
	}

	parts = appendTrimmed(parts, analysis.KeyEntities)
	parts = appendTrimmed(parts, analysis.ThematicKeywords)
	parts = appendTrimmed(parts, analysis.TopicTags)
	parts = appendTrimmed(parts, analysis.ContentFocus)

	if len(parts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if strings.HasSuffix(b.String(), ".") {
			b.WriteString(" ")
		} else {
			b.WriteString(". ")
		}
		b.WriteString(part)
	}

	result := b.String()
	if !strings.HasSuffix(result, ".") {
		result += "."
	}
	return result
}

func appendTrimmed(parts []string, values []string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			parts = append(parts, v)
		}
	}
	return parts
}
