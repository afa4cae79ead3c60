package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tc-auditor-service/internal/domain"
)

// PuzzleLoader fetches puzzle content from a backing store (database, content directory).
type PuzzleLoader interface {
	LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error)
}

// PuzzleRepository caches puzzles with TTL to avoid repeated backing store hits.
// Loaded puzzles are validated before they are cached; not-found is never cached.
type PuzzleRepository struct {
	loader PuzzleLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPuzzle
}

type cachedPuzzle struct {
	puzzle    domain.Puzzle
	expiresAt time.Time
}

func NewPuzzleRepository(loader PuzzleLoader, ttl time.Duration) *PuzzleRepository {
	return &PuzzleRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPuzzle),
	}
}

func (r *PuzzleRepository) GetPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	if p, ok := r.cached(date, r.clock()); ok {
		return p, nil
	}

	result, err, _ := r.sf.Do(date, func() (interface{}, error) {
		now := r.clock()
		if p, ok := r.cached(date, now); ok {
			return p, nil
		}

		p, err := r.loader.LoadPuzzle(ctx, date)
		if err != nil {
			return domain.Puzzle{}, err
		}
		if err := p.Validate(); err != nil {
			return domain.Puzzle{}, fmt.Errorf("load puzzle %s: %w", date, err)
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.mu.Lock()
			r.cache[date] = cachedPuzzle{puzzle: p, expiresAt: now.Add(ttl)}
			r.mu.Unlock()
		}
		return p, nil
	})
	if err != nil {
		return domain.Puzzle{}, err
	}
	return result.(domain.Puzzle), nil
}

// Invalidate drops a cached puzzle so the next lookup reloads it.
func (r *PuzzleRepository) Invalidate(date string) {
	r.mu.Lock()
	delete(r.cache, date)
	r.mu.Unlock()
}

func (r *PuzzleRepository) cached(date string, now time.Time) (domain.Puzzle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[date]; ok && entry.expiresAt.After(now) {
		return entry.puzzle, true
	}
	return domain.Puzzle{}, false
}

func (r *PuzzleRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPuzzleLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticPuzzleLoader struct {
	mu      sync.RWMutex
	puzzles map[string]domain.Puzzle
}

func NewStaticPuzzleLoader(puzzles ...domain.Puzzle) *StaticPuzzleLoader {
	l := &StaticPuzzleLoader{puzzles: make(map[string]domain.Puzzle, len(puzzles))}
	for _, p := range puzzles {
		l.puzzles[p.Date] = p
	}
	return l
}

func (l *StaticPuzzleLoader) LoadPuzzle(_ context.Context, date string) (domain.Puzzle, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.puzzles[date]; ok {
		return p, nil
	}
	return domain.Puzzle{}, domain.ErrPuzzleNotFound
}

// PublishPuzzle adds a puzzle for a date that has none yet.
func (l *StaticPuzzleLoader) PublishPuzzle(_ context.Context, p domain.Puzzle) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.puzzles[p.Date]; ok {
		return fmt.Errorf("publish %s: %w", p.Date, domain.ErrPuzzleExists)
	}
	l.puzzles[p.Date] = p
	return nil
}
