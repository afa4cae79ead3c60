package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var _ app.PuzzlePublisher = (*PuzzleStore)(nil)

// PuzzleStore loads and publishes puzzle JSONB documents keyed by date.
type PuzzleStore struct {
	pool *pgxpool.Pool
}

func NewPuzzleStore(pool *pgxpool.Pool) *PuzzleStore {
	return &PuzzleStore{pool: pool}
}

func (s *PuzzleStore) LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	query, args, err := psql.Select("data").From("puzzles").Where(sq.Eq{"date": date}).ToSql()
	if err != nil {
		return domain.Puzzle{}, err
	}

	var raw []byte
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Puzzle{}, domain.ErrPuzzleNotFound
		}
		return domain.Puzzle{}, fmt.Errorf("load puzzle: %w", err)
	}
	var p domain.Puzzle
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Puzzle{}, fmt.Errorf("unmarshal puzzle: %w", err)
	}
	return p, nil
}

// PublishPuzzle inserts a new puzzle. An existing date is never overwritten.
func (s *PuzzleStore) PublishPuzzle(ctx context.Context, p domain.Puzzle) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("puzzles").
		Columns("date", "title", "data").
		Values(p.Date, p.Title, sq.Expr("?::jsonb", string(data))).
		Suffix("ON CONFLICT (date) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert puzzle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("publish %s: %w", p.Date, domain.ErrPuzzleExists)
	}
	return nil
}

// Dates lists published puzzle dates, oldest first.
func (s *PuzzleStore) Dates(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("date").From("puzzles").OrderBy("date").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list puzzles: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
