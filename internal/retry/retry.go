// Package retry implements the exponential-backoff retry policy shared by
// the source adapter, sink adapter, and ingest pipeline.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// Config holds the retry policy. Defaults match what every adapter call
// site uses unless overridden for tests.
type Config struct {
	MaxAttempts    int           // total attempts including the first, default 5
	InitialBackoff time.Duration // default 1s
	MaxBackoff     time.Duration // default 30s, per the cap every adapter honors
}

// DefaultConfig returns the daemon-wide retry policy: 5 attempts, 1s
// initial backoff doubling up to a 30s cap.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

var retryableSubstrings = []string{
	"connection refused",
	"connection reset",
	"EOF",
	"timeout",
	"TLS handshake timeout",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"429",
	"502",
	"503",
	"504",
}

var permanentSubstrings = []string{
	"authentication failed",
	"password authentication",
	"permission denied",
	"does not exist",
	"unique constraint",
	"syntax error",
}

// IsRetryable classifies an error as transient (worth retrying) based on
// its Kind when it is an *errs.Error, falling back to substring matching
// against the underlying message for errors from third-party clients
// (pgx, net/http) that don't carry a Kind.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return e.Retryable()
	}

	msg := err.Error()
	for _, p := range permanentSubstrings {
		if strings.Contains(msg, p) {
			return false
		}
	}
	for _, r := range retryableSubstrings {
		if strings.Contains(msg, r) {
			return true
		}
	}
	return true
}

// Do runs fn up to cfg.MaxAttempts times, doubling the backoff between
// attempts starting at cfg.InitialBackoff and capping at cfg.MaxBackoff.
// It stops early if fn succeeds, if ctx is cancelled, or if the error is
// classified as permanent by IsRetryable.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}

	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
