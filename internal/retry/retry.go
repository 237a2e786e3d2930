// Package retry wraps a fetch-and-parse operation with bounded retries and
// decides between a terminal error and synthetic data.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/gdlinsight/gdlinsight/internal/fetch"
	"github.com/gdlinsight/gdlinsight/internal/record"
)

var (
	// ErrExhausted means every attempt failed with a transient error.
	ErrExhausted = errors.New("attempts exhausted")
	// ErrPermanent means the source answered with a non-retryable failure.
	ErrPermanent = errors.New("permanent source failure")
)

// FetchError is the single terminal error returned to callers when a dataset
// could not be produced and synthetic data was not allowed.
type FetchError struct {
	Dataset  string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Controller holds the retry policy.
type Controller struct {
	Attempts int
	Delay    time.Duration
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a controller. Non-positive attempts fall back to 3 and a
// negative delay to 2 seconds.
func New(attempts int, delay time.Duration) *Controller {
	if attempts <= 0 {
		attempts = 3
	}
	if delay < 0 {
		delay = 2 * time.Second
	}
	return &Controller{Attempts: attempts, Delay: delay, Sleep: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// Fetcher retrieves the raw body of a source.
type Fetcher func(ctx context.Context) (string, error)

// Do fetches with retries and parses the result. Parse failures are never
// retried. When anything fails and allowSynthetic is set, the result is
// Degraded with synth()'s value; otherwise it is Failed with a *FetchError.
func Do[T any](ctx context.Context, c *Controller, dataset string, get Fetcher, parse func(string) (T, error), allowSynthetic bool, synth func() T) record.Outcome[T] {
	raw, attempts, err := c.fetch(ctx, dataset, get)
	if err == nil {
		var v T
		v, err = parse(raw)
		if err == nil {
			return record.OK(v)
		}
		log.Printf("%s: extraction failed: %v", dataset, err)
	}

	ferr := &FetchError{Dataset: dataset, Attempts: attempts, Err: err}
	if allowSynthetic && synth != nil {
		log.Printf("%s: using synthetic data", dataset)
		return record.Degraded(synth(), ferr)
	}
	return record.Failed[T](ferr)
}

func (c *Controller) fetch(ctx context.Context, dataset string, get Fetcher) (string, int, error) {
	attempts := max(c.Attempts, 1)
	sleepFn := c.Sleep
	if sleepFn == nil {
		sleepFn = sleep
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		raw, err := get(ctx)
		if err == nil {
			return raw, i, nil
		}
		if ctx.Err() != nil {
			return "", i, fmt.Errorf("fetch cancelled: %w", ctx.Err())
		}
		if !IsTransient(err) {
			log.Printf("%s: permanent failure, not retrying: %v", dataset, err)
			return "", i, fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		lastErr = err
		log.Printf("%s: attempt %d/%d failed: %v", dataset, i, attempts, err)
		if i < attempts {
			if err := sleepFn(ctx, c.Delay); err != nil {
				return "", i, fmt.Errorf("fetch cancelled: %w", err)
			}
		}
	}
	return "", attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

// IsTransient reports whether err is a timeout, a dropped connection or a
// retryable HTTP status.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *fetch.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	// Lookups arrive wrapped in *net.OpError; "no such host" is permanent.
	var de *net.DNSError
	if errors.As(err, &de) {
		return de.IsTemporary || de.IsTimeout
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}
