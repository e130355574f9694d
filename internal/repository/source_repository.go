package repository

import (
	"context"
	"time"

	"feedmill/internal/domain/entity"
)

// SourceRepository persists and queries the sources table.
type SourceRepository interface {
	Get(ctx context.Context, id int64) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	Create(ctx context.Context, source *entity.Source) error
	Update(ctx context.Context, source *entity.Source) error
	Delete(ctx context.Context, id int64) error

	// TouchLastChecked advances last_checked_at; called only after a tick
	// completes every prior step successfully (spec §4.5 step 8).
	TouchLastChecked(ctx context.Context, id int64, t time.Time) error

	// SetInitialized writes do_initialized_at (spec §4.5 initialize / §9
	// open question: written only after state is persisted).
	SetInitialized(ctx context.Context, id int64, t time.Time) error

	// ClearInitialized clears do_initialized_at (spec §4.5 destroy).
	ClearInitialized(ctx context.Context, id int64) error
}
