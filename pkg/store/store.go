package store

import (
	"context"

	"jittr/pkg/domain"
)

// JitterRepository defines persistence operations for jitter accounts.
// Save carries put semantics: insert when the id is absent, overwrite when
// present. Usernames resolve case-insensitively.
type JitterRepository interface {
	Save(ctx context.Context, j domain.Jitter) (domain.Jitter, error)
	SaveAll(ctx context.Context, js []domain.Jitter) error
	FindByID(ctx context.Context, id int64) (domain.Jitter, bool, error)
	FindByUsername(ctx context.Context, username string) (domain.Jitter, bool, error)
	FindAll(ctx context.Context) ([]domain.Jitter, error)
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)

	// Merge upserts keyed by username rather than id. An existing jitter
	// keeps its password and role; only full name and email are
	// overwritten. A missing jitter is created with the default empty
	// credential and the member role. Runs in one transaction.
	Merge(ctx context.Context, j domain.Jitter) (domain.Jitter, error)
}

// JittleRepository defines persistence operations for jittles.
type JittleRepository interface {
	Save(ctx context.Context, j domain.Jittle) (domain.Jittle, error)
	SaveAll(ctx context.Context, js []domain.Jittle) error
	FindByID(ctx context.Context, id int64) (domain.Jittle, bool, error)
	FindAll(ctx context.Context) ([]domain.Jittle, error)
	FindByOwner(ctx context.Context, username string) ([]domain.Jittle, error)
	FindRecent(ctx context.Context, limit int) ([]domain.Jittle, error)
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)

	// Pull atomically fetches and removes every jittle owned by username,
	// optionally narrowed to one target queue, returning the pre-delete
	// rows. Fetch and delete are indivisible with respect to concurrent
	// pulls for the same owner and queue.
	Pull(ctx context.Context, username string, queue *domain.TargetQueue) ([]domain.Jittle, error)
}

// ResearchRepository defines persistence operations for the research
// family. All variants share one table; the state column is the
// discriminant used when mapping rows back to concrete variants.
type ResearchRepository interface {
	Save(ctx context.Context, r domain.Research) (domain.Research, error)
	SaveAll(ctx context.Context, rs []domain.Research) error
	FindByID(ctx context.Context, id int64) (domain.Research, bool, error)
	FindAll(ctx context.Context) ([]domain.Research, error)
	FindByOwners(ctx context.Context, usernames []string) ([]domain.Research, error)
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
