package app

import (
	"sync"

	"tc-auditor-service/internal/domain"
)

// StatsHub fans out DayStats updates to subscribers of a puzzle date.
type StatsHub struct {
	mu     sync.Mutex
	topics map[string]map[chan domain.DayStats]struct{}
}

func NewStatsHub() *StatsHub {
	return &StatsHub{topics: make(map[string]map[chan domain.DayStats]struct{})}
}

// Subscribe registers a listener for date and primes it with initial.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *StatsHub) Subscribe(date string, initial domain.DayStats) (<-chan domain.DayStats, func()) {
	ch := make(chan domain.DayStats, 8)
	ch <- initial

	h.mu.Lock()
	subs, ok := h.topics[date]
	if !ok {
		subs = make(map[chan domain.DayStats]struct{})
		h.topics[date] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.topics[date]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.topics, date)
		}
	}
	return ch, cancel
}

// Publish delivers stats to every subscriber of stats.Date. A subscriber that
// has fallen behind loses its oldest pending update instead of blocking.
func (h *StatsHub) Publish(stats domain.DayStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.topics[stats.Date] {
		select {
		case ch <- stats:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}

// Subscribers reports how many listeners are attached to date.
func (h *StatsHub) Subscribers(date string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[date])
}
