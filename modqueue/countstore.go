package modqueue

import (
	"context"
)

// counter names used by the queue
const (
	CounterSubmitted = "submitted"
	CounterApproved  = "approved"
	CounterRejected  = "rejected"

	// bucket aggregating across all submitters
	BucketAll = "all"

	// distinct-count name for unique submitters
	DistinctSubmitters = "submitters"
)

// CountStore holds per-submitter moderation counters. Counters are never
// deleted: they are the authoritative historical stats even after the item
// itself has been evicted or the queue purged.
type CountStore interface {
	GetCount(ctx context.Context, name, val string) (int, error)
	Increment(ctx context.Context, name, val string) error
	GetCountDistinct(ctx context.Context, name string) (int, error)
	IncrementDistinct(ctx context.Context, name, val string) error
}
