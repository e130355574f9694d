package analyzer

import (
	"fmt"

	"feedmill/internal/utils/text"
)

// systemPrompt instructs the model to emit exactly the analysis schema
// from spec §4.6, nothing else.
const systemPrompt = `You are a news article analyst. Given the full text of a news article, respond with ONLY a single JSON object (no prose, no markdown fences) with exactly these fields:

{
  "language": "<ISO 639-1 code>",
  "primary_location": "<ISO 3166-1 alpha-3 code, or GLOBAL, or N/A>",
  "completeness": "<COMPLETE | PARTIAL_USEFUL | PARTIAL_USELESS>",
  "content_quality": "<OK | LOW_QUALITY | JUNK>",
  "event_summary_points": ["..."],
  "thematic_keywords": ["..."],
  "topic_tags": ["..."],
  "key_entities": ["..."],
  "content_focus": ["..."]
}

When content_quality is JUNK or completeness is PARTIAL_USELESS, the array fields may be empty.`

const maxInputChars = 20000

func buildUserPrompt(articleText string) string {
	return fmt.Sprintf("Article text:\n\n%s", text.Truncate(articleText, maxInputChars))
}
