package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teemow/xtrn-google-mcp/internal/logging"
)

// Chunk size bounds accepted by the batch tools.
const (
	DefaultChunkSize = 50
	MaxChunkSize     = 100
	MaxItems         = 1000
)

var (
	// ErrNoItems is returned by Run when called without identifiers.
	ErrNoItems = errors.New("batch: no items to process")
	// ErrInvalidChunkSize is returned by Run for a chunk size below one.
	ErrInvalidChunkSize = errors.New("batch: chunk size must be positive")
)

// Operation processes a single item. A returned error marks that item as
// failed and never affects other items.
type Operation func(ctx context.Context, id string) error

// Option configures Run.
type Option func(*runner)

// WithItemTimeout bounds each Operation call. Zero disables the bound.
func WithItemTimeout(d time.Duration) Option {
	return func(r *runner) {
		if d > 0 {
			r.itemTimeout = d
		}
	}
}

// WithLimiter paces the start of every item through l.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *runner) {
		r.limiter = l
	}
}

// WithLogger sets the logger for chunk progress and fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type runner struct {
	op          Operation
	itemTimeout time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// panicError reports a panic recovered from an Operation.
type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Run executes op once for every id and returns the aggregate report.
//
// Chunks are processed strictly in input order and a chunk starts only after
// every item of the previous chunk has resolved. If the concurrent execution
// of a chunk fails, the outcomes already recorded are kept and only the
// unresolved items are re-executed sequentially.
func Run(ctx context.Context, ids []string, chunkSize int, op Operation, opts ...Option) (*Report, error) {
	if len(ids) == 0 {
		return nil, ErrNoItems
	}
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}

	r := &runner{op: op, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	report := &Report{
		Total:     len(ids),
		Successes: make([]string, 0, len(ids)),
		Failures:  make([]Failure, 0),
	}

	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		if err := ctx.Err(); err != nil {
			for _, id := range ids[start:] {
				report.Failures = append(report.Failures, Failure{ID: id, Error: err.Error()})
			}
			r.logger.Warn("batch cancelled before chunk start",
				slog.Int(logging.KeyChunk, report.Chunks),
				slog.Int("skipped", len(ids)-start),
				logging.Err(err),
			)
			break
		}

		outcomes, err := r.runConcurrent(ctx, chunk)
		if err != nil {
			r.logger.Warn("concurrent chunk execution failed, retrying unresolved items sequentially",
				slog.Int(logging.KeyChunk, report.Chunks),
				slog.Int("unresolved", unresolved(outcomes)),
				logging.Err(err),
			)
			r.resolveSequential(ctx, chunk, outcomes)
			report.Fallbacks++
		}
		report.Chunks++

		for _, o := range outcomes {
			if o.err != nil {
				report.Failures = append(report.Failures, Failure{ID: o.id, Error: o.err.Error()})
			} else {
				report.Successes = append(report.Successes, o.id)
			}
		}

		r.logger.Debug("batch chunk complete",
			slog.Int(logging.KeyChunk, report.Chunks-1),
			slog.Int("size", len(chunk)),
		)
	}

	return report, nil
}

type outcome struct {
	id  string
	err error
}

// runConcurrent runs every item of chunk in its own goroutine and records
// each outcome at the item's index. A panic leaves that slot nil and fails
// the chunk; the other slots are still filled.
func (r *runner) runConcurrent(ctx context.Context, chunk []string) ([]*outcome, error) {
	var (
		outcomes = make([]*outcome, len(chunk))
		g        errgroup.Group
	)

	for i, id := range chunk {
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = &panicError{value: v}
				}
			}()
			itemErr := r.runItem(ctx, id)
			outcomes[i] = &outcome{id: id, err: itemErr}
			return nil
		})
	}

	return outcomes, g.Wait()
}

// resolveSequential runs the items without an outcome one at a time, in
// order, with panics converted to item failures.
func (r *runner) resolveSequential(ctx context.Context, chunk []string, outcomes []*outcome) {
	for i, id := range chunk {
		if outcomes[i] != nil {
			continue
		}
		outcomes[i] = &outcome{id: id, err: r.runItemIsolated(ctx, id)}
	}
}

func unresolved(outcomes []*outcome) int {
	n := 0
	for _, o := range outcomes {
		if o == nil {
			n++
		}
	}
	return n
}

// runItemIsolated converts a panic into the item's error.
func (r *runner) runItemIsolated(ctx context.Context, id string) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v}
		}
	}()
	return r.runItem(ctx, id)
}

func (r *runner) runItem(ctx context.Context, id string) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if r.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.itemTimeout)
		defer cancel()
	}

	err := r.op(ctx, id)
	if err != nil {
		r.logger.Debug("batch item failed", logging.ItemID(id), logging.Err(err))
	}
	return err
}
