package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

var (
	_ app.PlayLedger = (*PlayLedger)(nil)
	_ app.StatsStore = (*StatsStore)(nil)
)

// PlayLedger is an in-memory implementation of app.PlayLedger.
type PlayLedger struct {
	mu      sync.RWMutex
	results map[string]domain.GameResult
}

func NewPlayLedger() *PlayLedger {
	return &PlayLedger{results: make(map[string]domain.GameResult)}
}

func (l *PlayLedger) Record(_ context.Context, result domain.GameResult) (domain.GameResult, bool, error) {
	key := ledgerKey(result.PuzzleDate, result.SessionID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.results[key]; ok {
		return existing, false, nil
	}
	l.results[key] = result
	return result, true, nil
}

func (l *PlayLedger) Get(_ context.Context, date, sessionID string) (domain.GameResult, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result, ok := l.results[ledgerKey(date, sessionID)]
	return result, ok, nil
}

func ledgerKey(date, sessionID string) string {
	return date + "|" + sessionID
}

// StatsStore is an in-memory implementation of app.StatsStore.
type StatsStore struct {
	clock func() time.Time

	mu   sync.Mutex
	days map[string]*dayCounters
}

type dayCounters struct {
	players   int
	found     map[string]int
	scoreSum  decimal.Decimal
	updatedAt time.Time
}

func NewStatsStore() *StatsStore {
	return &StatsStore{clock: time.Now, days: make(map[string]*dayCounters)}
}

func (s *StatsStore) Record(_ context.Context, date string, realIDs, foundIDs []string, total decimal.Decimal) (domain.DayStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.days[date]
	if !ok {
		day = &dayCounters{found: make(map[string]int), scoreSum: decimal.Zero}
		s.days[date] = day
	}
	day.players++
	for _, id := range realIDs {
		if _, ok := day.found[id]; !ok {
			day.found[id] = 0
		}
	}
	for _, id := range foundIDs {
		day.found[id]++
	}
	day.scoreSum = day.scoreSum.Add(total)
	day.updatedAt = s.clock().UTC()

	return domain.BuildDayStats(date, day.players, day.found, day.scoreSum, day.updatedAt), nil
}

func (s *StatsStore) Get(_ context.Context, date string) (domain.DayStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day, ok := s.days[date]
	if !ok {
		return domain.BuildDayStats(date, 0, nil, decimal.Zero, time.Time{}), nil
	}
	return domain.BuildDayStats(date, day.players, day.found, day.scoreSum, day.updatedAt), nil
}
