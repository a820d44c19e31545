package store

import (
	"context"
	"time"

	"engagewatch/internal/model"
)

// RunSummary is the outcome of one monitor run, recorded as the
// high-water mark even when nothing new was found.
type RunSummary struct {
	Source      model.SourceType
	StartedAt   time.Time
	Total       int
	Fresh       int
	Skipped     int
	RateLimited bool
}

// Store persists the set of already-reported notification ids between
// runs. The set only ever grows.
type Store interface {
	// LoadSeen reads the persisted ids. Callers treat an error as an
	// empty set; a missing or unreadable store is never fatal.
	LoadSeen(ctx context.Context) (map[string]bool, error)

	// MarkSeen adds the given notifications' ids to the seen set.
	// Already-present ids are left untouched.
	MarkSeen(ctx context.Context, notifications []model.Notification) error

	// RecordRun appends one run's outcome to the run history.
	RecordRun(ctx context.Context, run RunSummary) error

	// LastRun returns the most recent recorded run, or nil when the
	// history is empty.
	LastRun(ctx context.Context) (*RunSummary, error)

	Close() error
}

// FilterNew returns the candidates whose id is not in seen, preserving
// input order. A duplicate id inside the batch itself is the same
// logical event and is kept only once.
func FilterNew(
	candidates []model.Notification, seen map[string]bool,
) []model.Notification {
	var fresh []model.Notification
	inBatch := make(map[string]bool, len(candidates))

	for _, n := range candidates {
		if seen[n.ID] || inBatch[n.ID] {
			continue
		}
		inBatch[n.ID] = true
		fresh = append(fresh, n)
	}
	return fresh
}
