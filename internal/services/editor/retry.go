package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phambaophuc/product-studio/internal/models"
	"go.uber.org/zap"
)

// RetryPolicy bounds each remote call by AttemptTimeout and retries
// transport failures with exponential backoff.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	AttemptTimeout: 60 * time.Second,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     8 * time.Second,
}

type retryingEditor struct {
	next   Editor
	policy RetryPolicy
	logger *zap.Logger
}

func WithRetry(next Editor, policy RetryPolicy, logger *zap.Logger) Editor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retryingEditor{next: next, policy: policy, logger: logger}
}

func (r *retryingEditor) Edit(ctx context.Context, req models.EditRequest) (*models.EditedImage, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		img, err := r.attempt(ctx, req)
		if err == nil {
			return img, nil
		}
		lastErr = err

		if ctx.Err() != nil || !Retryable(err) || attempt == r.policy.MaxAttempts {
			break
		}

		backoff := r.backoff(attempt)
		r.logger.Warn("Edit attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, Transport(ctx.Err())
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (r *retryingEditor) attempt(ctx context.Context, req models.EditRequest) (*models.EditedImage, error) {
	attemptCtx := ctx
	if r.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.policy.AttemptTimeout)
		defer cancel()
	}

	img, err := r.next.Edit(attemptCtx, req)
	if err == nil {
		return img, nil
	}

	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, &EditError{
			Kind:    ErrTransport,
			Message: fmt.Sprintf("The AI model did not respond within %s.", r.policy.AttemptTimeout),
			Err:     err,
		}
	}

	var editErr *EditError
	if !errors.As(err, &editErr) {
		return nil, Transport(err)
	}
	return nil, err
}

func (r *retryingEditor) backoff(attempt int) time.Duration {
	d := r.policy.InitialBackoff << (attempt - 1)
	if r.policy.MaxBackoff > 0 && (d > r.policy.MaxBackoff || d <= 0) {
		d = r.policy.MaxBackoff
	}
	return d
}
