package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("msg-%04d", i)
	}
	return ids
}

func collectIDs(r *Report) []string {
	all := append([]string{}, r.Successes...)
	for _, f := range r.Failures {
		all = append(all, f.ID)
	}
	sort.Strings(all)
	return all
}

func TestRun_InvalidInput(t *testing.T) {
	op := func(context.Context, string) error { return nil }

	_, err := Run(context.Background(), nil, 10, op)
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = Run(context.Background(), []string{"a"}, 0, op)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = Run(context.Background(), []string{"a"}, -5, op)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}

func TestRun_EveryItemExactlyOnce(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		chunkSize int
		failEvery int
	}{
		{name: "single item", items: 1, chunkSize: 50},
		{name: "exact multiple", items: 100, chunkSize: 50, failEvery: 3},
		{name: "ragged last chunk", items: 77, chunkSize: 10, failEvery: 5},
		{name: "chunk size one", items: 9, chunkSize: 1, failEvery: 2},
		{name: "chunk larger than input", items: 5, chunkSize: 100, failEvery: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := makeIDs(tt.items)
			var calls atomic.Int32
			op := func(_ context.Context, id string) error {
				calls.Add(1)
				var n int
				_, _ = fmt.Sscanf(id, "msg-%d", &n)
				if tt.failEvery > 0 && n%tt.failEvery == 0 {
					return errors.New("boom")
				}
				return nil
			}

			report, err := Run(context.Background(), ids, tt.chunkSize, op)
			require.NoError(t, err)

			assert.Equal(t, tt.items, report.Total)
			assert.Equal(t, tt.items, report.Successful()+report.Failed())
			assert.Equal(t, int32(tt.items), calls.Load())

			want := append([]string{}, ids...)
			sort.Strings(want)
			assert.Equal(t, want, collectIDs(report))
		})
	}
}

func TestRun_AllSucceed(t *testing.T) {
	report, err := Run(context.Background(), makeIDs(10), 3, func(context.Context, string) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, 10, report.Successful())
	assert.Equal(t, 0, report.Failed())
	assert.Empty(t, report.Failures)
	assert.Equal(t, 4, report.Chunks)
}

func TestRun_AllFail(t *testing.T) {
	ids := makeIDs(7)
	report, err := Run(context.Background(), ids, 3, func(_ context.Context, id string) error {
		return fmt.Errorf("not found: %s", id)
	})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Successful())
	require.Len(t, report.Failures, 7)
	for _, f := range report.Failures {
		assert.Equal(t, "not found: "+f.ID, f.Error)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	report, err := Run(context.Background(), []string{"a", "b", "c"}, 50, func(_ context.Context, id string) error {
		if id == "b" {
			return errors.New("Requested entity was not found.")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Successful())
	assert.Equal(t, 1, report.Failed())
	assert.ElementsMatch(t, []string{"a", "c"}, report.Successes)
	assert.Equal(t, []Failure{{ID: "b", Error: "Requested entity was not found."}}, report.Failures)
}

func TestRun_ChunksAreSequential(t *testing.T) {
	ids := makeIDs(120)
	chunkOf := make(map[string]int, len(ids))
	for i, id := range ids {
		chunkOf[id] = i / 50
	}

	var (
		seq    atomic.Int64
		mu     sync.Mutex
		starts = map[int][]int64{}
		ends   = map[int][]int64{}
	)

	op := func(_ context.Context, id string) error {
		c := chunkOf[id]
		s := seq.Add(1)
		time.Sleep(time.Millisecond)
		e := seq.Add(1)

		mu.Lock()
		starts[c] = append(starts[c], s)
		ends[c] = append(ends[c], e)
		mu.Unlock()
		return nil
	}

	report, err := Run(context.Background(), ids, 50, op)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Chunks)
	assert.Len(t, starts[0], 50)
	assert.Len(t, starts[1], 50)
	assert.Len(t, starts[2], 20)

	for c := 1; c < 3; c++ {
		assert.Greater(t, minOf(starts[c]), maxOf(ends[c-1]), "chunk %d started before chunk %d resolved", c, c-1)
	}
}

func TestRun_ConcurrencyBoundedByChunkSize(t *testing.T) {
	var inFlight, peak atomic.Int32
	op := func(context.Context, string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	_, err := Run(context.Background(), makeIDs(40), 8, op)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(8))
}

func TestRun_PanicFallsBackToSequential(t *testing.T) {
	var panicked atomic.Bool
	var calls atomic.Int32
	op := func(_ context.Context, id string) error {
		calls.Add(1)
		if id == "b" && panicked.CompareAndSwap(false, true) {
			panic("transport exploded")
		}
		return nil
	}

	report, err := Run(context.Background(), []string{"a", "b", "c"}, 3, op)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Fallbacks)
	assert.Equal(t, []string{"a", "b", "c"}, report.Successes, "outcomes keep input order")
	assert.Empty(t, report.Failures)
	assert.Equal(t, int32(4), calls.Load(), "only the panicking item is re-run")
}

func TestRun_PanicKeepsSiblingOutcomes(t *testing.T) {
	var (
		mu      sync.Mutex
		deleted = map[string]bool{}
		calls   atomic.Int32
	)
	del := func(_ context.Context, id string) error {
		calls.Add(1)
		if id == "p" {
			panic("malformed response")
		}
		mu.Lock()
		defer mu.Unlock()
		if deleted[id] {
			return errors.New("Requested entity was not found.")
		}
		deleted[id] = true
		return nil
	}

	report, err := Run(context.Background(), []string{"a", "b", "p"}, DefaultChunkSize, del)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, report.Successes)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "p", report.Failures[0].ID)
	assert.Equal(t, "panic: malformed response", report.Failures[0].Error)
	assert.Equal(t, 1, report.Fallbacks)
	assert.Equal(t, int32(4), calls.Load())
}

func TestRun_PanicDuringFallbackIsItemFailure(t *testing.T) {
	op := func(_ context.Context, id string) error {
		if id == "bad" {
			panic("always")
		}
		return nil
	}

	report, err := Run(context.Background(), []string{"ok1", "bad", "ok2"}, 10, op)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok1", "ok2"}, report.Successes)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bad", report.Failures[0].ID)
	assert.Equal(t, "panic: always", report.Failures[0].Error)
}

func TestRun_ItemTimeout(t *testing.T) {
	op := func(ctx context.Context, id string) error {
		if id == "slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	start := time.Now()
	report, err := Run(context.Background(), []string{"fast", "slow"}, 2, op, WithItemTimeout(20*time.Millisecond))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"fast"}, report.Successes)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, context.DeadlineExceeded.Error(), report.Failures[0].Error)
}

func TestRun_CancelledContextFailsRemainingItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	op := func(_ context.Context, id string) error {
		if id == "msg-0001" {
			cancel()
		}
		return nil
	}

	report, err := Run(ctx, makeIDs(6), 2, op)
	require.NoError(t, err)

	assert.Equal(t, []string{"msg-0000", "msg-0001"}, sortedCopy(report.Successes))
	require.Len(t, report.Failures, 4)
	for _, f := range report.Failures {
		assert.Equal(t, context.Canceled.Error(), f.Error)
	}
	assert.Equal(t, 1, report.Chunks)
}

func TestRun_WithLimiter(t *testing.T) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	report, err := Run(context.Background(), makeIDs(5), 2, func(context.Context, string) error { return nil }, WithLimiter(limiter))
	require.NoError(t, err)
	assert.Equal(t, 5, report.Successful())
}

func TestRun_LimiterWaitErrorIsItemFailure(t *testing.T) {
	// Burst 0 with a finite rate makes Wait fail immediately.
	limiter := rate.NewLimiter(rate.Limit(1), 0)
	report, err := Run(context.Background(), []string{"a", "b"}, 2, func(context.Context, string) error { return nil }, WithLimiter(limiter))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed())
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

func minOf(v []int64) int64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []int64) int64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
