package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lborres/reel/core"
)

const DefaultStoreTimeout = 5 * time.Second

// storeError wraps a persistence failure the caller cannot act on.
// Transient failures match core.ErrUnavailable, everything else core.ErrInternal.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, core.ErrUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, errors.Join(core.ErrUnavailable, err))
	default:
		return fmt.Errorf("%s: %w", op, errors.Join(core.ErrInternal, err))
	}
}

func internalError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(core.ErrInternal, err))
}

// bounded derives the context for one store call
func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
