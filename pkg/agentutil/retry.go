// Package agentutil holds small generic helpers shared by components that
// would otherwise each reinvent retry/backoff logic — the streaming LLM
// client (pkg/llmclient) and the tool runtime (pkg/tools) both use it.
package agentutil

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// RetryReason classifies why a failed attempt is considered retryable.
type RetryReason string

const (
	ReasonTimeout     RetryReason = "timeout"
	ReasonServerError RetryReason = "server_error"
	ReasonUnknown     RetryReason = "unknown"
)

// RetryDecision is the outcome of classifying one failed attempt.
type RetryDecision struct {
	Retryable bool
	Status    int
	Reason    RetryReason
}

// IsRetryableError inspects an error for the conditions this module treats
// as transient: context deadline exceeded, or an HTTP 5xx embedded in the
// error text by the transport layer.
func IsRetryableError(err error) RetryDecision {
	if err == nil {
		return RetryDecision{}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return RetryDecision{Retryable: true, Reason: ReasonTimeout}
	}

	msg := err.Error()
	if strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "Client.Timeout") {
		return RetryDecision{Retryable: true, Reason: ReasonTimeout}
	}

	if status, ok := parseHTTPStatus(msg); ok {
		if status >= 500 && status <= 599 {
			return RetryDecision{Retryable: true, Status: status, Reason: ReasonServerError}
		}
		return RetryDecision{Retryable: false, Status: status}
	}

	return RetryDecision{}
}

func parseHTTPStatus(msg string) (int, bool) {
	idx := strings.Index(msg, "status ")
	if idx < 0 {
		idx = strings.Index(msg, "Status:")
		if idx < 0 {
			return 0, false
		}
		idx += len("Status:")
	} else {
		idx += len("status ")
	}

	s := strings.TrimSpace(msg[idx:])
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	code, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return code, true
}

// NotifyFunc is invoked between attempts, before the backoff sleep.
type NotifyFunc func(attempt, total int, decision RetryDecision)

// Config describes a bounded retry schedule: one per-attempt timeout and,
// between attempts, a backoff sleep.
type Config struct {
	Timeouts []time.Duration
	Backoffs []time.Duration
	Notify   NotifyFunc
}

// ExponentialBackoff builds a Config with attempts tries, each given
// perAttemptTimeout, with backoff doubling from base each time — the
// "500ms * 2^k" policy the tool runtime and streaming client share.
func ExponentialBackoff(attempts int, perAttemptTimeout time.Duration, base time.Duration) Config {
	if attempts < 1 {
		attempts = 1
	}
	cfg := Config{
		Timeouts: make([]time.Duration, attempts),
		Backoffs: make([]time.Duration, attempts-1),
	}
	for i := 0; i < attempts; i++ {
		cfg.Timeouts[i] = perAttemptTimeout
	}
	backoff := base
	for i := 0; i < attempts-1; i++ {
		cfg.Backoffs[i] = backoff
		backoff *= 2
	}
	return cfg
}

// DoWithRetry runs fn under the schedule in retry, stopping at the first
// success, the first non-retryable failure, or after the final attempt.
func DoWithRetry[T any](ctx context.Context, retry Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if len(retry.Timeouts) == 0 {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 1; attempt <= len(retry.Timeouts); attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, retry.Timeouts[attempt-1])
		val, err := fn(attemptCtx)
		cancel()

		if err == nil {
			return val, nil
		}
		lastErr = err

		if attempt == len(retry.Timeouts) {
			break
		}

		decision := IsRetryableError(err)
		if !decision.Retryable {
			break
		}

		if retry.Notify != nil {
			retry.Notify(attempt, len(retry.Timeouts), decision)
		}

		if attempt-1 < len(retry.Backoffs) {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(retry.Backoffs[attempt-1]):
			}
		}
	}

	return zero, lastErr
}
