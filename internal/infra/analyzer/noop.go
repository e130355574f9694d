package analyzer

import (
	"context"

	"feedmill/internal/domain/entity"
)

// Noop always returns a fixed, low-confidence analysis. Useful for local
// development and tests that don't want a real API key.
type Noop struct{}

func (Noop) Analyze(ctx context.Context, articleText string) (entity.Analysis, error) {
	return entity.Analysis{
		Language:        "en",
		PrimaryLocation: "N/A",
		Completeness:    entity.CompletenessPartialUseful,
		ContentQuality:  entity.ContentQualityOK,
	}, nil
}
