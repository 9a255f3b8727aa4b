package trial

import (
	"context"
	"math"
	"time"

	"github.com/aid2e/pipeline-core/pkg/config"
	"github.com/aid2e/pipeline-core/pkg/logger"
)

// RetryRunner wraps a Runner and re-runs a failed stage script a bounded
// number of times. Stage scripts are idempotent (they rewrite their
// output artifact), so a transient executable failure is safe to retry.
// Cancellation is never retried.
type RetryRunner struct {
	inner      Runner
	maxRetries int
	backoff    string // exponential, linear, constant
	base       time.Duration
}

// NewRetryRunner builds a retry wrapper from the run configuration's
// retry settings.
func NewRetryRunner(inner Runner, cfg config.StageRetry) *RetryRunner {
	base := time.Duration(cfg.BaseMs) * time.Millisecond
	if base <= 0 {
		base = time.Second
	}
	return &RetryRunner{
		inner:      inner,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		base:       base,
	}
}

// Run executes the script, retrying on failure up to the configured
// attempt budget with backoff between attempts.
func (r *RetryRunner) Run(ctx context.Context, script string) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.inner.Run(ctx, script)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= r.maxRetries {
			return err
		}

		delay := r.backoffDuration(attempt + 1)
		logger.Warn("stage script failed, retrying",
			"script", script,
			"attempt", attempt+1,
			"max_retries", r.maxRetries,
			"backoff", delay,
			"error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
	}
}

func (r *RetryRunner) backoffDuration(attempt int) time.Duration {
	switch r.backoff {
	case "linear":
		return r.base * time.Duration(attempt)
	case "constant":
		return r.base
	default: // exponential
		return r.base * time.Duration(math.Pow(2, float64(attempt-1)))
	}
}
