package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// RealClauseCount is the number of genuine clauses hidden in every document.
	RealClauseCount = 5
	// DecoyClauseCount is the number of look-alike clauses offered next to the real ones.
	DecoyClauseCount = 5
	// SelectionSize is how many clause ids a player must pick.
	SelectionSize = RealClauseCount
)

// Rarity is the bonus tier of a real clause.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityModerate Rarity = "moderate"
	RarityRare     Rarity = "rare"
)

// Valid reports whether r is one of the known tiers.
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityModerate, RarityRare:
		return true
	}
	return false
}

// Clause is one candidate statement shown during the identification phase.
type Clause struct {
	ID     string `json:"id" yaml:"id"`
	Text   string `json:"text" yaml:"text"`
	Rarity Rarity `json:"rarity,omitempty" yaml:"rarity,omitempty"` // real clauses only
}

// Puzzle is the canonical content for one calendar date.
type Puzzle struct {
	Date              string   `json:"date" yaml:"date"`
	Title             string   `json:"title" yaml:"title"`
	DocumentText      string   `json:"document_text" yaml:"document_text"`
	RealClauses       []Clause `json:"real_clauses" yaml:"real_clauses"`
	DecoyClauses      []Clause `json:"decoy_clauses" yaml:"decoy_clauses"`
	PresentationOrder []string `json:"presentation_order" yaml:"presentation_order"`
}

// Submission is a single play attempt sent by a client.
type Submission struct {
	PuzzleDate            string   `json:"puzzle_date"`
	SessionID             string   `json:"session_id"`
	SelectedClauseIDs     []string `json:"selected_clause_ids"`
	CompletionTimeSeconds int      `json:"completion_time_seconds"`
}

// ClauseBonus is the bonus earned for one correctly identified real clause.
type ClauseBonus struct {
	Rarity Rarity          `json:"rarity"`
	Bonus  decimal.Decimal `json:"bonus"`
}

// Score is the outcome of scoring one selection against a puzzle.
type Score struct {
	PuzzleDate           string                 `json:"puzzle_date"`
	CorrectRealIDs       []string               `json:"correct_real_ids"`
	PerClauseRarityBonus map[string]ClauseBonus `json:"per_clause_rarity_bonus"`
	BaseScore            int                    `json:"base_score"`
	BonusScore           decimal.Decimal        `json:"bonus_score"`
	TotalScore           decimal.Decimal        `json:"total_score"`
	MaxScore             decimal.Decimal        `json:"max_score"`
}

// UserAnswer is the per-clause outcome of a play, in presentation order.
type UserAnswer struct {
	ClauseID    string `json:"clause_id"`
	WasSelected bool   `json:"was_selected"`
	IsReal      bool   `json:"is_real"`
	Correct     bool   `json:"correct"`
}

// GameResult is a recorded, scored submission.
type GameResult struct {
	ID                    string       `json:"id"`
	PuzzleDate            string       `json:"puzzle_date"`
	SessionID             string       `json:"session_id"`
	SelectedClauseIDs     []string     `json:"selected_clause_ids"`
	Score                 Score        `json:"score"`
	Answers               []UserAnswer `json:"user_answers"`
	CompletionTimeSeconds int          `json:"completion_time_seconds"`
	SubmittedAt           time.Time    `json:"submitted_at"`
	// Replayed is set when the result was already recorded for the same session and date.
	Replayed bool `json:"replayed"`
}

// ClauseStat counts how often a real clause was found on a given day.
type ClauseStat struct {
	FoundCount   int     `json:"found_count"`
	TotalPlayers int     `json:"total_players"`
	Percentage   float64 `json:"percentage"`
}

// DayStats aggregates recorded plays for one puzzle date.
type DayStats struct {
	Date         string                `json:"date"`
	TotalPlayers int                   `json:"total_players"`
	ClauseStats  map[string]ClauseStat `json:"clause_stats"`
	AverageScore float64               `json:"average_score"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// CandidateClause is a clause as shown before scoring, with its identity hidden.
type CandidateClause struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PlayView is the read-only capability: document plus unlabeled candidates.
type PlayView struct {
	Date         string            `json:"date"`
	Title        string            `json:"title"`
	DocumentText string            `json:"document_text"`
	Candidates   []CandidateClause `json:"candidates"`
}

// RevealedClause is a candidate clause with its identity and the player's outcome.
type RevealedClause struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsReal      bool   `json:"is_real"`
	Rarity      Rarity `json:"rarity,omitempty"`
	WasSelected bool   `json:"was_selected"`
	Correct     bool   `json:"correct"`
}

// ReviewView is the reveal capability granted after a recorded submission.
type ReviewView struct {
	Date    string           `json:"date"`
	Title   string           `json:"title"`
	Clauses []RevealedClause `json:"clauses"`
	Score   Score            `json:"score"`
}
