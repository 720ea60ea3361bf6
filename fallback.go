package main

import (
	"context"
	"io"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// candidateCall issues one capability request against a single model.
type candidateCall[T any] func(ctx context.Context, model string) (T, error)

// invoker runs the shared retry/fallback algorithm for one capability.
// Candidates are tried strictly in order; the first success wins and no
// further calls are made. A rate-limited candidate whose reported retry
// delay fits under the ceiling gets exactly one same-candidate retry after
// sleeping that long; every other failure advances to the next candidate
// after a short fixed backoff.
type invoker struct {
	capability string
	models     []string
	timeout    time.Duration
	backoff    time.Duration
	logger     *log.Logger
	// sleep is swapped out in tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

func newInvoker(capability string, models []string, timeout, backoff time.Duration, logger *log.Logger) *invoker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &invoker{
		capability: capability,
		models:     models,
		timeout:    timeout,
		backoff:    backoff,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// invokeWithFallback walks inv's candidate list with call. On success it
// returns the output and the model that produced it. Once every candidate is
// exhausted it returns a single aggregated failure carrying the last
// observed error: QuotaExhaustedError if the final failure was a rate limit,
// ProviderError otherwise. Callers must not assume partial progress.
func invokeWithFallback[T any](ctx context.Context, inv *invoker, call candidateCall[T]) (T, string, error) {
	var zero T
	var lastErr error
	lastQuota := false

	for i, model := range inv.models {
		out, err := attempt(ctx, inv, model, call)
		if err == nil {
			return out, model, nil
		}
		lastErr = err
		lastQuota = isRateLimited(err)
		inv.logger.Printf("[%s] model %s failed: %v", inv.capability, model, err)

		if lastQuota {
			if delay, ok := reportedRetryDelay(err); ok && delay <= RetryDelayCeiling {
				inv.logger.Printf("[%s] rate limit on %s, honoring %s retry delay", inv.capability, model, delay)
				if serr := inv.sleep(ctx, delay); serr != nil {
					break
				}
				out, err = attempt(ctx, inv, model, call)
				if err == nil {
					return out, model, nil
				}
				lastErr = err
				lastQuota = isRateLimited(err)
				inv.logger.Printf("[%s] retry on %s also failed: %v", inv.capability, model, err)
			}
		}

		if i < len(inv.models)-1 {
			if serr := inv.sleep(ctx, inv.backoff); serr != nil {
				break
			}
		}
	}

	if ctx.Err() != nil && lastErr == nil {
		lastErr = ctx.Err()
	}
	if lastQuota {
		return zero, "", &QuotaExhaustedError{Capability: inv.capability, LastErr: lastErr}
	}
	return zero, "", &ProviderError{Capability: inv.capability, LastErr: lastErr}
}

// attempt issues a single bounded call against one model.
func attempt[T any](ctx context.Context, inv *invoker, model string, call candidateCall[T]) (T, error) {
	callCtx := ctx
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}
	return call(callCtx, model)
}

// isRateLimited classifies an error as quota/rate exhaustion from the
// provider's status code or status text.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// retryDelayPattern matches provider retry hints such as `"retryDelay":"34s"`
// or `retry in 34.07s`.
var retryDelayPattern = regexp.MustCompile(`(?i)retry(?:Delay)?[" :]*(?:in\s+)?(\d+(?:\.\d+)?)s`)

// reportedRetryDelay extracts the provider-suggested wait from an error, if
// one is present.
func reportedRetryDelay(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	m := retryDelayPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	secs, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0, false
	}
	return time.Duration(math.Ceil(secs)) * time.Second, true
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
