// Package retry runs an operation under a fixed exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Policy describes how many times to try and how long to wait between tries.
// The wait after attempt i (0-based) is BaseDelay * Multiplier^i. There is no
// jitter and no cap beyond MaxAttempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultPolicy is three attempts with 1s, then 2s between them.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
	}
}

// Delay returns the wait that follows the given 0-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base delay must not be negative, got %v", p.BaseDelay)
	}
	if p.Multiplier <= 0 {
		return fmt.Errorf("multiplier must be positive, got %v", p.Multiplier)
	}
	return nil
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error // error from the final attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Retrier applies a Policy. The zero value is not usable; use New.
type Retrier struct {
	policy  Policy
	sleep   SleepFunc
	onRetry func(attempt int, err error, delay time.Duration)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleep replaces the wait function, typically with a fake clock in tests.
func WithSleep(fn SleepFunc) Option {
	return func(r *Retrier) {
		r.sleep = fn
	}
}

// WithOnRetry registers a hook called after a failed attempt that will be
// retried, before the wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New creates a Retrier for the policy.
func New(policy Policy, opts ...Option) *Retrier {
	r := &Retrier{
		policy: policy,
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the policy in use.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do calls fn until it succeeds or the attempts run out. fn receives the
// 0-based attempt index. After the final failure Do returns an
// *ExhaustedError wrapping that failure. If ctx ends during a wait, the
// context error is returned joined with the last failure.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := r.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx, i)
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		delay := r.policy.Delay(i)
		if r.onRetry != nil {
			r.onRetry(i, err, delay)
		}
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return errors.Join(sleepErr, err)
		}
	}

	return &ExhaustedError{Attempts: attempts, Err: err}
}

// Do is shorthand for New(policy, opts...).Do(ctx, fn).
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error, opts ...Option) error {
	return New(policy, opts...).Do(ctx, fn)
}
