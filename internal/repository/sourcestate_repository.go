package repository

import (
	"context"

	"feedmill/internal/domain/entity"
)

// SourceStateRepository backs the persisted key/value control block
// described in spec §6 ("per-scraper key `state` → SourceState blob; a
// single pending alarm timestamp").
type SourceStateRepository interface {
	// Get returns (nil, nil) if no state has ever been persisted for sourceID.
	Get(ctx context.Context, sourceID int64) (*entity.SourceState, error)
	Put(ctx context.Context, state *entity.SourceState) error
	Delete(ctx context.Context, sourceID int64) error
}

// DeadLetterRepository captures bus messages that exhausted the dispatcher's
// configured delivery-attempt threshold (spec §4.8).
type DeadLetterRepository interface {
	Record(ctx context.Context, dl *entity.DeadLetter) error
	List(ctx context.Context, limit int) ([]*entity.DeadLetter, error)
}
