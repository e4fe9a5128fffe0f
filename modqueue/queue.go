package modqueue

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

var (
	ErrNotFound       = errors.New("pending item not found")
	ErrAlreadyHandled = errors.New("item already handled")
)

// LimitSource supplies the live capacity limits for the queue. Reads happen
// on every Add so runtime settings changes take effect immediately.
type LimitSource interface {
	QueueLimits() (maxItems int, maxAge time.Duration)
}

// Queue is the concurrency-safe store of pending items. Every mutation runs
// under a single mutex, so two moderators racing on the same item can never
// both win: the loser observes the item already terminal and gets
// ErrAlreadyHandled.
//
// Capacity is a soft ceiling. When the store is full, Add first evicts every
// item older than the cleanup window (terminal items included, nothing else
// removes them) and then inserts regardless of whether room was freed.
type Queue struct {
	logger *slog.Logger
	items  ItemStore
	counts CountStore
	limits LimitSource

	mu sync.Mutex

	// wall clock, swappable in tests
	now func() time.Time
}

func NewQueue(logger *slog.Logger, items ItemStore, counts CountStore, limits LimitSource) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		logger: logger.With("component", "modqueue"),
		items:  items,
		counts: counts,
		limits: limits,
		now:    time.Now,
	}
}

// Add inserts a new pending item keyed by its originating submission id and
// increments the submitter's counters. Returns the item id.
func (q *Queue) Add(ctx context.Context, item Item) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item.Status = StatusPending
	if item.CreatedAt.IsZero() {
		item.CreatedAt = q.now()
	}

	maxItems, maxAge := q.limits.QueueLimits()
	count, err := q.items.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count >= maxItems {
		evicted, err := q.cleanup(ctx, maxAge)
		if err != nil {
			return 0, err
		}
		if evicted == 0 {
			q.logger.Warn("queue over capacity and nothing evictable, adding anyway",
				"count", count, "max", maxItems)
		}
	}

	if err := q.items.Put(ctx, &item); err != nil {
		return 0, err
	}
	sub := strconv.FormatInt(item.SubmitterID, 10)
	if err := q.bumpCounter(ctx, CounterSubmitted, sub); err != nil {
		return 0, err
	}
	if err := q.counts.IncrementDistinct(ctx, DistinctSubmitters, sub); err != nil {
		return 0, err
	}
	itemsAdded.Inc()
	q.logger.Info("pending item added", "id", item.ID, "submitter", item.SubmitterID, "kind", item.Kind)
	return item.ID, nil
}

// Get returns a copy of the item, or ErrNotFound.
func (q *Queue) Get(ctx context.Context, id int64) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, err := q.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrNotFound
	}
	return it, nil
}

// MarkApproved flips a pending item to approved, exactly once. Returns a
// snapshot of the decided item for post-lock side effects. A second call, or
// a call against a rejected item, returns ErrAlreadyHandled with no state
// change; an absent item returns ErrNotFound.
func (q *Queue) MarkApproved(ctx context.Context, id int64) (*Item, error) {
	return q.decide(ctx, id, StatusApproved, CounterApproved)
}

// MarkRejected is the rejection counterpart of MarkApproved.
func (q *Queue) MarkRejected(ctx context.Context, id int64) (*Item, error) {
	return q.decide(ctx, id, StatusRejected, CounterRejected)
}

func (q *Queue) decide(ctx context.Context, id int64, status Status, counter string) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		q.logger.Info("decision against unknown item", "id", id, "status", status)
		return nil, ErrNotFound
	}
	if it.Terminal() {
		q.logger.Info("decision against already handled item", "id", id, "have", it.Status, "want", status)
		return nil, ErrAlreadyHandled
	}

	it.Status = status
	if err := q.items.Put(ctx, it); err != nil {
		return nil, err
	}
	if err := q.bumpCounter(ctx, counter, strconv.FormatInt(it.SubmitterID, 10)); err != nil {
		return nil, err
	}
	decisionsMade.WithLabelValues(string(status)).Inc()
	q.logger.Info("item decided", "id", id, "status", status, "submitter", it.SubmitterID)
	return it, nil
}

// ClearAll removes every item regardless of status and returns how many were
// removed. Counters are untouched.
func (q *Queue) ClearAll(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	all, err := q.items.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, it := range all {
		if err := q.items.Delete(ctx, it.ID); err != nil {
			return 0, err
		}
	}
	q.logger.Info("queue purged", "removed", len(all))
	return len(all), nil
}

// SubmitterStats returns the historical counters for one submitter.
func (q *Queue) SubmitterStats(ctx context.Context, submitterID int64) (SubmitterStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out SubmitterStats
	sub := strconv.FormatInt(submitterID, 10)
	var err error
	if out.Submitted, err = q.counts.GetCount(ctx, CounterSubmitted, sub); err != nil {
		return out, err
	}
	if out.Approved, err = q.counts.GetCount(ctx, CounterApproved, sub); err != nil {
		return out, err
	}
	if out.Rejected, err = q.counts.GetCount(ctx, CounterRejected, sub); err != nil {
		return out, err
	}
	return out, nil
}

// Stats returns an aggregated snapshot across the queue and all historical
// counters.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out Stats
	all, err := q.items.List(ctx)
	if err != nil {
		return out, err
	}
	for _, it := range all {
		if it.Status == StatusPending {
			out.PendingCount++
		}
	}
	if out.UniqueSubmitters, err = q.counts.GetCountDistinct(ctx, DistinctSubmitters); err != nil {
		return out, err
	}
	if out.TotalSubmitted, err = q.counts.GetCount(ctx, CounterSubmitted, BucketAll); err != nil {
		return out, err
	}
	if out.TotalApproved, err = q.counts.GetCount(ctx, CounterApproved, BucketAll); err != nil {
		return out, err
	}
	if out.TotalRejected, err = q.counts.GetCount(ctx, CounterRejected, BucketAll); err != nil {
		return out, err
	}
	return out, nil
}

// cleanup evicts every item older than maxAge. Caller must hold q.mu.
func (q *Queue) cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	all, err := q.items.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := q.now().Add(-maxAge)
	evicted := 0
	for _, it := range all {
		if it.CreatedAt.Before(cutoff) {
			if err := q.items.Delete(ctx, it.ID); err != nil {
				return evicted, err
			}
			evicted++
		}
	}
	if evicted > 0 {
		itemsEvicted.Add(float64(evicted))
		q.logger.Info("cleanup evicted stale items", "evicted", evicted, "maxAge", maxAge)
	}
	return evicted, nil
}

// bumpCounter increments both the per-submitter bucket and the aggregate.
func (q *Queue) bumpCounter(ctx context.Context, name, sub string) error {
	if err := q.counts.Increment(ctx, name, sub); err != nil {
		return err
	}
	return q.counts.Increment(ctx, name, BucketAll)
}
