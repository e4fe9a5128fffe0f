package modqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLimits struct {
	max int
	age time.Duration
}

func (f fixedLimits) QueueLimits() (int, time.Duration) {
	return f.max, f.age
}

func testQueue(max int, age time.Duration) *Queue {
	return NewQueue(nil, NewMemItemStore(), NewMemCountStore(), fixedLimits{max: max, age: age})
}

func testItem(id, submitter int64) Item {
	return Item{
		ID:          id,
		SubmitterID: submitter,
		Kind:        KindPhoto,
		ContentRef:  "p1",
	}
}

func TestQueueAddAndGet(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(100, 24*time.Hour)

	id, err := q.Add(ctx, testItem(11, 100))
	assert.NoError(err)
	assert.Equal(int64(11), id)

	it, err := q.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(StatusPending, it.Status)
	assert.Equal(int64(100), it.SubmitterID)
	assert.False(it.CreatedAt.IsZero())

	_, err = q.Get(ctx, 999)
	assert.ErrorIs(err, ErrNotFound)

	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(1, st.PendingCount)
	assert.Equal(1, st.UniqueSubmitters)
	assert.Equal(1, st.TotalSubmitted)
}

func TestQueueApproveFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(100, 24*time.Hour)
	_, err := q.Add(ctx, testItem(11, 100))
	assert.NoError(err)

	it, err := q.MarkApproved(ctx, 11)
	assert.NoError(err)
	assert.Equal(StatusApproved, it.Status)

	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(0, st.PendingCount)
	assert.Equal(1, st.TotalApproved)
	assert.Equal(0, st.TotalRejected)

	subStats, err := q.SubmitterStats(ctx, 100)
	assert.NoError(err)
	assert.Equal(SubmitterStats{Submitted: 1, Approved: 1}, subStats)
}

func TestQueueDecisionIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(100, 24*time.Hour)
	_, err := q.Add(ctx, testItem(11, 100))
	assert.NoError(err)

	_, err = q.MarkApproved(ctx, 11)
	assert.NoError(err)
	_, err = q.MarkApproved(ctx, 11)
	assert.ErrorIs(err, ErrAlreadyHandled)

	// counters changed exactly once
	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(1, st.TotalApproved)

	_, err = q.MarkApproved(ctx, 404)
	assert.ErrorIs(err, ErrNotFound)
}

func TestQueueDecisionsMutuallyExclusive(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(100, 24*time.Hour)
	_, err := q.Add(ctx, testItem(11, 100))
	assert.NoError(err)

	_, err = q.MarkRejected(ctx, 11)
	assert.NoError(err)
	_, err = q.MarkApproved(ctx, 11)
	assert.ErrorIs(err, ErrAlreadyHandled)

	it, err := q.Get(ctx, 11)
	assert.NoError(err)
	assert.Equal(StatusRejected, it.Status)

	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(1, st.TotalRejected)
	assert.Equal(0, st.TotalApproved)
}

func TestQueueCapacityCleanup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(3, 24*time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		_, err := q.Add(ctx, testItem(i, 100+i))
		assert.NoError(err)
	}
	// one of them gets decided; terminal items are evicted the same way
	_, err := q.MarkApproved(ctx, 1)
	assert.NoError(err)

	// fill to capacity, then age everything past the cleanup window
	now = now.Add(25 * time.Hour)

	_, err = q.Add(ctx, testItem(4, 200))
	assert.NoError(err)

	// all three stale items evicted, only the new one remains
	_, err = q.Get(ctx, 1)
	assert.ErrorIs(err, ErrNotFound)
	_, err = q.Get(ctx, 2)
	assert.ErrorIs(err, ErrNotFound)
	it, err := q.Get(ctx, 4)
	assert.NoError(err)
	assert.Equal(StatusPending, it.Status)

	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(1, st.PendingCount)
	// history survives eviction
	assert.Equal(4, st.TotalSubmitted)
	assert.Equal(1, st.TotalApproved)
}

func TestQueueCapacitySoftCeiling(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(2, 24*time.Hour)

	for i := int64(1); i <= 2; i++ {
		_, err := q.Add(ctx, testItem(i, 100))
		assert.NoError(err)
	}
	// nothing is evictable yet; the add still succeeds
	_, err := q.Add(ctx, testItem(3, 100))
	assert.NoError(err)

	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(3, st.PendingCount)
}

func TestQueueClearAllKeepsCounters(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(100, 24*time.Hour)
	for i := int64(1); i <= 3; i++ {
		_, err := q.Add(ctx, testItem(i, 100+i))
		assert.NoError(err)
	}
	_, err := q.MarkRejected(ctx, 2)
	assert.NoError(err)

	n, err := q.ClearAll(ctx)
	assert.NoError(err)
	assert.Equal(3, n)

	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(0, st.PendingCount)
	assert.Equal(3, st.TotalSubmitted)
	assert.Equal(1, st.TotalRejected)
	assert.Equal(3, st.UniqueSubmitters)
}

func TestQueueConcurrentDecisions(t *testing.T) {
	// two moderators racing on the same item: exactly one wins,
	// everyone else observes AlreadyHandled (run with `-race`!)
	assert := assert.New(t)
	ctx := context.Background()

	q := testQueue(100, 24*time.Hour)
	_, err := q.Add(ctx, testItem(11, 100))
	assert.NoError(err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	losses := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		approve := i%2 == 0
		go func() {
			defer wg.Done()
			var err error
			if approve {
				_, err = q.MarkApproved(ctx, 11)
			} else {
				_, err = q.MarkRejected(ctx, 11)
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, ErrAlreadyHandled) {
				losses++
			}
		}()
	}
	wg.Wait()

	assert.Equal(1, wins)
	assert.Equal(7, losses)

	st, err := q.Stats(ctx)
	assert.NoError(err)
	assert.Equal(1, st.TotalApproved+st.TotalRejected)
}
