package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tc-auditor-service/internal/domain"
)

// RetryPolicy bounds a single puzzle lookup.
type RetryPolicy struct {
	AttemptTimeout time.Duration
	Retries        uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		AttemptTimeout: 2 * time.Second,
		Retries:        1,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// RetryingStore bounds every lookup by a timeout and retries transient failures.
// Missing and invalid puzzles are final answers and are returned immediately.
type RetryingStore struct {
	next   PuzzleStore
	policy RetryPolicy
	logger *slog.Logger
}

var _ PuzzleStore = (*RetryingStore)(nil)

func NewRetryingStore(next PuzzleStore, policy RetryPolicy, logger *slog.Logger) *RetryingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingStore{next: next, policy: policy, logger: logger.With("component", "retrying_store")}
}

func (s *RetryingStore) GetPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	var puzzle domain.Puzzle
	attempt := 0

	op := func() error {
		attempt++
		attemptCtx := ctx
		if s.policy.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.policy.AttemptTimeout)
			defer cancel()
		}

		p, err := s.next.GetPuzzle(attemptCtx, date)
		if err == nil {
			puzzle = p
			return nil
		}
		if errors.Is(err, domain.ErrPuzzleNotFound) || errors.Is(err, domain.ErrInvalidPuzzle) || errors.Is(err, domain.ErrInvalidDate) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		s.logger.Warn("puzzle lookup failed", "date", date, "attempt", attempt, "err", err)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.policy.InitialBackoff
	b.MaxInterval = s.policy.MaxBackoff
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, s.policy.Retries), ctx))
	if err == nil {
		return puzzle, nil
	}
	if errors.Is(err, domain.ErrPuzzleNotFound) || errors.Is(err, domain.ErrInvalidPuzzle) || errors.Is(err, domain.ErrInvalidDate) {
		return domain.Puzzle{}, err
	}
	return domain.Puzzle{}, fmt.Errorf("%w: get puzzle %s after %d attempts: %w", domain.ErrStoreUnavailable, date, attempt, err)
}
