package app

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tc-auditor-service/internal/domain"
)

// ScoringTable maps a real clause's rarity to its bonus and caps the total.
type ScoringTable struct {
	Weights  map[domain.Rarity]decimal.Decimal
	MaxScore decimal.Decimal
}

// DefaultScoringTable is the 5-point scale: one point per real clause found
// plus a fractional rarity bonus (rare 0.5, moderate 0.3, common 0.1).
func DefaultScoringTable() ScoringTable {
	return ScoringTable{
		Weights: map[domain.Rarity]decimal.Decimal{
			domain.RarityRare:     decimal.RequireFromString("0.5"),
			domain.RarityModerate: decimal.RequireFromString("0.3"),
			domain.RarityCommon:   decimal.RequireFromString("0.1"),
		},
		MaxScore: decimal.RequireFromString("7.5"),
	}
}

// Validate checks that every tier has a non-negative weight and that the cap
// leaves room for a perfect round with the heaviest bonus on every clause.
func (t ScoringTable) Validate() error {
	heaviest := decimal.Zero
	for _, r := range []domain.Rarity{domain.RarityCommon, domain.RarityModerate, domain.RarityRare} {
		w, ok := t.Weights[r]
		if !ok {
			return fmt.Errorf("scoring: no weight for rarity %q", r)
		}
		if w.IsNegative() {
			return fmt.Errorf("scoring: negative weight %s for rarity %q", w, r)
		}
		if w.GreaterThan(heaviest) {
			heaviest = w
		}
	}
	perfect := decimal.NewFromInt(domain.RealClauseCount).Add(heaviest.Mul(decimal.NewFromInt(domain.RealClauseCount)))
	if t.MaxScore.LessThan(perfect) {
		return fmt.Errorf("scoring: max score %s is below the best possible round %s", t.MaxScore, perfect)
	}
	return nil
}

// ValidateSelection checks that selected holds exactly SelectionSize distinct ids
// taken from the puzzle. Count is checked before membership, membership before
// duplicates.
func ValidateSelection(p domain.Puzzle, selected []string) error {
	if len(selected) != domain.SelectionSize {
		return &domain.SelectionError{Reason: domain.ReasonWrongCount, Got: len(selected), Want: domain.SelectionSize}
	}

	ids := p.ClauseIDs()
	var unknown []string
	for _, id := range selected {
		if _, ok := ids[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &domain.SelectionError{Reason: domain.ReasonUnknownID, IDs: unknown}
	}

	seen := make(map[string]struct{}, len(selected))
	var dups []string
	for _, id := range selected {
		if _, ok := seen[id]; ok {
			dups = append(dups, id)
		}
		seen[id] = struct{}{}
	}
	if len(dups) > 0 {
		return &domain.SelectionError{Reason: domain.ReasonDuplicateID, IDs: dups}
	}
	return nil
}

// ScoreSelection recomputes correctness from the canonical puzzle. It has no
// side effects and returns the same Score for the same inputs.
func ScoreSelection(p domain.Puzzle, selected []string, table ScoringTable) (domain.Score, error) {
	if err := ValidateSelection(p, selected); err != nil {
		return domain.Score{}, err
	}

	chosen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}

	score := domain.Score{
		PuzzleDate:           p.Date,
		CorrectRealIDs:       []string{},
		PerClauseRarityBonus: make(map[string]domain.ClauseBonus),
		BonusScore:           decimal.Zero,
		MaxScore:             table.MaxScore,
	}
	for _, id := range p.PresentationOrder {
		if _, ok := chosen[id]; !ok {
			continue
		}
		clause, isReal := p.RealClause(id)
		if !isReal {
			continue
		}
		bonus := table.Weights[clause.Rarity]
		score.CorrectRealIDs = append(score.CorrectRealIDs, id)
		score.PerClauseRarityBonus[id] = domain.ClauseBonus{Rarity: clause.Rarity, Bonus: bonus}
		score.BonusScore = score.BonusScore.Add(bonus)
	}
	score.BaseScore = len(score.CorrectRealIDs)
	score.TotalScore = decimal.Min(decimal.NewFromInt(int64(score.BaseScore)).Add(score.BonusScore), table.MaxScore)
	return score, nil
}

// BuildAnswers lists the outcome for every clause in presentation order. A
// decoy counts as correct when it was left unselected.
func BuildAnswers(p domain.Puzzle, selected []string) []domain.UserAnswer {
	chosen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}
	answers := make([]domain.UserAnswer, 0, len(p.PresentationOrder))
	for _, id := range p.PresentationOrder {
		_, was := chosen[id]
		isReal := p.IsReal(id)
		answers = append(answers, domain.UserAnswer{
			ClauseID:    id,
			WasSelected: was,
			IsReal:      isReal,
			Correct:     was == isReal,
		})
	}
	return answers
}
