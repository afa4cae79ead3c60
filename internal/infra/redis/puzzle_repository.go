package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"tc-auditor-service/internal/domain"
)

// PuzzleLoader fetches puzzle content from a backing store (database, content directory).
type PuzzleLoader interface {
	LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error)
}

// PuzzleRepository caches puzzles in Redis and falls back to a loader on cache miss.
// Puzzles are stored as JSON: SET puzzle:{date} {json} EX ttl
type PuzzleRepository struct {
	client *redis.Client
	loader PuzzleLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewPuzzleRepository(client *redis.Client, loader PuzzleLoader, ttl time.Duration) *PuzzleRepository {
	return &PuzzleRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PuzzleRepository) GetPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	if p, ok := r.cached(ctx, date); ok {
		return p, nil
	}

	result, err, _ := r.sf.Do(date, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if p, ok := r.cached(ctx, date); ok {
			return p, nil
		}

		p, err := r.loader.LoadPuzzle(ctx, date)
		if err != nil {
			return domain.Puzzle{}, err
		}
		if err := p.Validate(); err != nil {
			return domain.Puzzle{}, fmt.Errorf("load puzzle %s: %w", date, err)
		}

		if data, err := json.Marshal(p); err == nil {
			// best-effort: a failed write only costs another load
			_ = r.client.Set(ctx, puzzleKey(date), data, r.ttlWithJitter()).Err()
		}
		return p, nil
	})
	if err != nil {
		return domain.Puzzle{}, err
	}
	return result.(domain.Puzzle), nil
}

// Invalidate drops the cached copy of a puzzle.
func (r *PuzzleRepository) Invalidate(ctx context.Context, date string) error {
	return r.client.Del(ctx, puzzleKey(date)).Err()
}

func (r *PuzzleRepository) cached(ctx context.Context, date string) (domain.Puzzle, bool) {
	data, err := r.client.Get(ctx, puzzleKey(date)).Bytes()
	if err != nil {
		return domain.Puzzle{}, false
	}
	var p domain.Puzzle
	if err := json.Unmarshal(data, &p); err != nil || p.Validate() != nil {
		return domain.Puzzle{}, false
	}
	return p, true
}

func puzzleKey(date string) string {
	return "puzzle:" + date
}

func (r *PuzzleRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
