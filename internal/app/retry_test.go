package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

type scriptedStore struct {
	mu    sync.Mutex
	errs  []error
	calls int
	delay time.Duration
}

func (s *scriptedStore) GetPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return domain.Puzzle{}, ctx.Err()
		}
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return domain.Puzzle{}, s.errs[i]
	}
	return domain.Puzzle{Date: date}, nil
}

func (s *scriptedStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastPolicy() app.RetryPolicy {
	return app.RetryPolicy{
		AttemptTimeout: 50 * time.Millisecond,
		Retries:        1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}
}

func TestRetryingStoreRetriesOnce(t *testing.T) {
	inner := &scriptedStore{errs: []error{errors.New("connection reset")}}
	store := app.NewRetryingStore(inner, fastPolicy(), nil)

	p, err := store.GetPuzzle(context.Background(), "2025-01-20")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if p.Date != "2025-01-20" || inner.Calls() != 2 {
		t.Fatalf("unexpected result %+v after %d calls", p, inner.Calls())
	}
}

func TestRetryingStoreSurfacesUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	inner := &scriptedStore{errs: []error{boom, boom, boom}}
	store := app.NewRetryingStore(inner, fastPolicy(), nil)

	_, err := store.GetPuzzle(context.Background(), "2025-01-20")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
	if inner.Calls() != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", inner.Calls())
	}
}

func TestRetryingStoreDoesNotRetryNotFound(t *testing.T) {
	for _, want := range []error{domain.ErrPuzzleNotFound, &domain.PuzzleError{Date: "2025-01-20", Problems: []string{"x"}}} {
		inner := &scriptedStore{errs: []error{want}}
		store := app.NewRetryingStore(inner, fastPolicy(), nil)

		_, err := store.GetPuzzle(context.Background(), "2025-01-20")
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
		if errors.Is(err, domain.ErrStoreUnavailable) {
			t.Fatalf("final answers must not become transient failures: %v", err)
		}
		if inner.Calls() != 1 {
			t.Fatalf("expected no retry, got %d calls", inner.Calls())
		}
	}
}

func TestRetryingStoreBoundsSlowAttempts(t *testing.T) {
	inner := &scriptedStore{delay: time.Second}
	store := app.NewRetryingStore(inner, fastPolicy(), nil)

	start := time.Now()
	_, err := store.GetPuzzle(context.Background(), "2025-01-20")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("lookup was not bounded, took %v", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}
}
