package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

var (
	_ app.PlayLedger = (*PlayLedger)(nil)
	_ app.StatsStore = (*StatsStore)(nil)
)

// PlayLedger records one result per session and date.
// Results are stored as: SET NX play:{date}:{session} {json} EX ttl
type PlayLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPlayLedger(client *redis.Client, ttl time.Duration) *PlayLedger {
	return &PlayLedger{client: client, ttl: ttl}
}

func (l *PlayLedger) Record(ctx context.Context, result domain.GameResult) (domain.GameResult, bool, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return domain.GameResult{}, false, err
	}
	key := playKey(result.PuzzleDate, result.SessionID)
	created, err := l.client.SetNX(ctx, key, data, l.ttl).Result()
	if err != nil {
		return domain.GameResult{}, false, err
	}
	if created {
		return result, true, nil
	}

	existing, ok, err := l.Get(ctx, result.PuzzleDate, result.SessionID)
	if err != nil {
		return domain.GameResult{}, false, err
	}
	if !ok {
		return domain.GameResult{}, false, fmt.Errorf("play %s expired while recording", key)
	}
	return existing, false, nil
}

func (l *PlayLedger) Get(ctx context.Context, date, sessionID string) (domain.GameResult, bool, error) {
	data, err := l.client.Get(ctx, playKey(date, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GameResult{}, false, nil
	}
	if err != nil {
		return domain.GameResult{}, false, err
	}
	var result domain.GameResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.GameResult{}, false, fmt.Errorf("decode play %s/%s: %w", date, sessionID, err)
	}
	return result, true, nil
}

func playKey(date, sessionID string) string {
	return "play:" + date + ":" + sessionID
}

// StatsStore keeps per-day counters in a hash per date:
//
//	HINCRBY stats:{date} players 1
//	HINCRBY stats:{date} found:{clauseID} 1
//	HINCRBY stats:{date} score_milli {total*1000}
//
// Scores are summed in thousandths of a point so the average stays exact.
type StatsStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
}

func NewStatsStore(client *redis.Client, ttl time.Duration) *StatsStore {
	return &StatsStore{client: client, ttl: ttl, clock: time.Now}
}

const (
	fieldPlayers    = "players"
	fieldScoreMilli = "score_milli"
	fieldUpdatedAt  = "updated_at"
	foundPrefix     = "found:"
)

var milli = decimal.NewFromInt(1000)

func (s *StatsStore) Record(ctx context.Context, date string, realIDs, foundIDs []string, total decimal.Decimal) (domain.DayStats, error) {
	key := statsKey(date)
	found := make(map[string]struct{}, len(foundIDs))
	for _, id := range foundIDs {
		found[id] = struct{}{}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldPlayers, 1)
		for _, id := range realIDs {
			var n int64
			if _, ok := found[id]; ok {
				n = 1
			}
			pipe.HIncrBy(ctx, key, foundPrefix+id, n)
		}
		pipe.HIncrBy(ctx, key, fieldScoreMilli, total.Mul(milli).Round(0).IntPart())
		pipe.HSet(ctx, key, fieldUpdatedAt, s.clock().UTC().Format(time.RFC3339Nano))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return domain.DayStats{}, fmt.Errorf("update stats %s: %w", date, err)
	}
	return s.Get(ctx, date)
}

func (s *StatsStore) Get(ctx context.Context, date string) (domain.DayStats, error) {
	fields, err := s.client.HGetAll(ctx, statsKey(date)).Result()
	if err != nil {
		return domain.DayStats{}, fmt.Errorf("read stats %s: %w", date, err)
	}

	var (
		players   int
		scoreSum  = decimal.Zero
		updatedAt time.Time
		found     = make(map[string]int)
	)
	for field, raw := range fields {
		switch {
		case field == fieldPlayers:
			players, _ = strconv.Atoi(raw)
		case field == fieldScoreMilli:
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				scoreSum = decimal.NewFromInt(n).Div(milli)
			}
		case field == fieldUpdatedAt:
			updatedAt, _ = time.Parse(time.RFC3339Nano, raw)
		case strings.HasPrefix(field, foundPrefix):
			n, _ := strconv.Atoi(raw)
			found[strings.TrimPrefix(field, foundPrefix)] = n
		}
	}
	return domain.BuildDayStats(date, players, found, scoreSum, updatedAt), nil
}

func statsKey(date string) string {
	return "stats:" + date
}
