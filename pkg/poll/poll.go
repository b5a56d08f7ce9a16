// Package poll implements the bounded-interval polling loop callers use
// to refresh order and proof state while a submission is outstanding.
package poll

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultInterval matches the reference cadence for proof status refresh.
const DefaultInterval = 3 * time.Second

// errNotDone schedules another attempt without recording a failure.
var errNotDone = retry.RetryableError(errSentinel{})

type errSentinel struct{}

func (errSentinel) Error() string { return "not done" }

// Func fetches the latest state. Returning (done=false, nil) schedules
// another attempt; a non-nil error is treated as transient and retried
// so a flaky read never surfaces as a hard failure mid-poll.
type Func[T any] func(ctx context.Context) (value T, done bool, err error)

// Options tunes a polling loop.
type Options struct {
	Interval    time.Duration
	MaxDuration time.Duration
}

// Until polls fn at a fixed interval until it reports done, the context
// is cancelled, or MaxDuration elapses. The last successfully fetched
// value is retained across transient failures and returned either way.
func Until[T any](ctx context.Context, opts Options, fn Func[T]) (T, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	backoff := retry.NewConstant(interval)
	if opts.MaxDuration > 0 {
		backoff = retry.WithMaxDuration(opts.MaxDuration, backoff)
	}

	var last T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		value, done, err := fn(ctx)
		if err != nil {
			// Keep the last known state; transient reads retry.
			return retry.RetryableError(err)
		}
		last = value
		if !done {
			return errNotDone
		}
		return nil
	})
	return last, err
}
