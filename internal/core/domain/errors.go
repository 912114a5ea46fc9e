package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnparseablePDF     = fmt.Errorf("unparseable pdf: %w", ErrInvalidInput)
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// RateLimitError reports a throttled request and when it may be retried.
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Scope, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
