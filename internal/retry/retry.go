package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is wrapped by Do when every attempt failed.
var ErrExhausted = errors.New("retry budget exhausted")

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 3 * time.Second
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int           `json:"max_attempts"`
	Backoff     time.Duration `json:"backoff"`
}

// DefaultPolicy returns 3 attempts with a 3s pause before each retry.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
	}
}

// attempts never drops below one so a misconfigured policy still runs once.
func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Operation is one attempt. attempt is 1-based.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Notify is called after every failed attempt that is not permanent.
// remaining is the number of attempts still allowed (0 on the last failure).
type Notify func(err error, attempt, remaining int)

// Do runs op until it succeeds, returns a permanent error, the policy's
// attempts are used up, or ctx is done. It returns the successful value and
// the number of attempts made. On failure the value is always the zero T:
// results of failed attempts are never carried over.
func Do[T any](ctx context.Context, p Policy, op Operation[T], notify Notify) (T, int, error) {
	var zero T
	limit := p.attempts()
	attempt := 0
	permanent := false

	operation := func() (T, error) {
		attempt++
		res, err := op(ctx, attempt)
		if err == nil {
			return res, nil
		}
		if IsPermanent(err) {
			permanent = true
			return zero, err
		}
		if notify != nil {
			notify(err, attempt, limit-attempt)
		}
		return zero, err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(limit-1)),
		ctx,
	)

	res, err := backoff.RetryNotifyWithData(operation, b, nil)
	if err == nil {
		return res, attempt, nil
	}
	if permanent {
		return zero, attempt, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, attempt, fmt.Errorf("cancelled after %d attempts: %w", attempt, ctxErr)
	}
	return zero, attempt, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
}

// Permanent marks err so that Do stops without further attempts.
// Do returns the unwrapped err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}
