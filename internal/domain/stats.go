package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuildDayStats derives percentages and the average score from raw counters.
// found holds the found count of every real clause, zero counts included.
func BuildDayStats(date string, players int, found map[string]int, scoreSum decimal.Decimal, updatedAt time.Time) DayStats {
	stats := DayStats{
		Date:         date,
		TotalPlayers: players,
		ClauseStats:  make(map[string]ClauseStat, len(found)),
		UpdatedAt:    updatedAt,
	}
	for id, n := range found {
		cs := ClauseStat{FoundCount: n, TotalPlayers: players}
		if players > 0 {
			cs.Percentage = decimal.NewFromInt(int64(n)).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(players))).
				Round(2).
				InexactFloat64()
		}
		stats.ClauseStats[id] = cs
	}
	if players > 0 {
		stats.AverageScore = scoreSum.Div(decimal.NewFromInt(int64(players))).Round(2).InexactFloat64()
	}
	return stats
}
