// Package retry is the single bounded-retry utility used around every external call in
// the pipeline: store transactions, forum fetches, and nothing else. Uniform semantics
// (fixed delay, transient-only, whole-operation re-run) live here so every call site
// behaves identically under failure.
package retry

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Spec configures a bounded fixed-delay retry. Attempts counts total tries, not retries
// after the first. OnRetry, when set, observes each scheduled retry.
type Spec struct {
	Attempts int
	Delay    time.Duration
	OnRetry  func(err error, attempt int)
}

// StoreSpec is the retry discipline for the transactional store.
func StoreSpec() Spec { return Spec{Attempts: 5, Delay: time.Second} }

// ListingSpec is the retry discipline for forum listing fetches.
func ListingSpec() Spec { return Spec{Attempts: 5, Delay: 3 * time.Second} }

// CommentSpec is the retry discipline for forum comment-tree fetches.
func CommentSpec() Spec { return Spec{Attempts: 5, Delay: time.Second} }

// Do runs fn under spec, retrying only when transient reports the returned error as
// retryable. The entire fn is re-run on every attempt, so fn must be idempotent as a
// whole. A non-transient error aborts immediately; exhausting attempts surfaces the last
// error.
func Do[T any](ctx context.Context, spec Spec, transient func(error) bool, fn func() (T, error)) (T, error) {
	attempts := spec.Attempts
	if attempts < 1 {
		attempts = 1
	}
	builder := retrypolicy.NewBuilder[T]().
		WithDelay(spec.Delay).
		WithMaxRetries(attempts - 1).
		HandleIf(func(_ T, err error) bool {
			return err != nil && transient(err)
		}).
		ReturnLastFailure()
	if spec.OnRetry != nil {
		builder = builder.OnRetry(func(e failsafe.ExecutionEvent[T]) {
			spec.OnRetry(e.LastError(), e.Attempts())
		})
	}
	return failsafe.With(builder.Build()).WithContext(ctx).Get(fn)
}

// DoVoid is Do for operations without a result value.
func DoVoid(ctx context.Context, spec Spec, transient func(error) bool, fn func() error) error {
	_, err := Do(ctx, spec, transient, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
