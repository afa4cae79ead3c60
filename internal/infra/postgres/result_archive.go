package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

var _ app.ResultArchive = (*ResultArchive)(nil)

type gameResultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	ID                    string              `bun:"id,pk,type:uuid"`
	PuzzleDate            string              `bun:"puzzle_date"`
	SessionID             string              `bun:"session_id"`
	SelectedClauseIDs     []string            `bun:"selected_clause_ids,array"`
	BaseScore             int                 `bun:"base_score"`
	BonusScore            decimal.Decimal     `bun:"bonus_score,type:numeric"`
	TotalScore            decimal.Decimal     `bun:"total_score,type:numeric"`
	Answers               []domain.UserAnswer `bun:"user_answers,type:jsonb"`
	CompletionTimeSeconds int                 `bun:"completion_time_seconds"`
	SubmittedAt           time.Time           `bun:"submitted_at"`
}

// ResultArchive keeps every recorded result in the game_results table.
type ResultArchive struct {
	db *bun.DB
}

func NewResultArchive(db *bun.DB) *ResultArchive {
	return &ResultArchive{db: db}
}

func (a *ResultArchive) Archive(ctx context.Context, result domain.GameResult) error {
	row := gameResultRow{
		ID:                    result.ID,
		PuzzleDate:            result.PuzzleDate,
		SessionID:             result.SessionID,
		SelectedClauseIDs:     result.SelectedClauseIDs,
		BaseScore:             result.Score.BaseScore,
		BonusScore:            result.Score.BonusScore,
		TotalScore:            result.Score.TotalScore,
		Answers:               result.Answers,
		CompletionTimeSeconds: result.CompletionTimeSeconds,
		SubmittedAt:           result.SubmittedAt,
	}
	if _, err := a.db.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	return nil
}

// CountByDate returns how many results were archived for date.
func (a *ResultArchive) CountByDate(ctx context.Context, date string) (int, error) {
	return a.db.NewSelect().Model((*gameResultRow)(nil)).Where("puzzle_date = ?", date).Count(ctx)
}
