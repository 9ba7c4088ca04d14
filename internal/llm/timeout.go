package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout indicates a provider call did not finish within its deadline.
type ErrTimeout struct {
	After time.Duration
	Err   error
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("LLM request timed out after %s", e.After)
}

func (e *ErrTimeout) Unwrap() error { return e.Err }

// TimeoutProvider is a decorator that bounds every Generate call.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps a Provider so each call fails with *ErrTimeout once d
// has elapsed. A non-positive d uses DefaultTimeout.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := t.inner.Generate(ctx, req)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ErrTimeout{After: t.timeout, Err: r.err}
		}
		return r.resp, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ErrTimeout{After: t.timeout, Err: ctx.Err()}
		}
		return nil, ctx.Err()
	}
}

func (t *TimeoutProvider) ModelID() string {
	return t.inner.ModelID()
}

// IsTimeout reports whether err came from an expired LLM deadline.
func IsTimeout(err error) bool {
	var te *ErrTimeout
	return errors.As(err, &te)
}
