// Package sqlite is a single-file store for puzzles, plays and results.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ app.PuzzlePublisher = (*Store)(nil)
	_ app.PlayLedger      = (*Store)(nil)
	_ app.ResultArchive   = (*Store)(nil)
)

// Store keeps puzzles, the play ledger and archived results in one SQLite file.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open creates or opens the database at path and applies the schema.
// Safe to call on an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, sb: sq.StatementBuilder.RunWith(db)}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	var raw string
	err := s.sb.Select("data").From("puzzles").Where(sq.Eq{"date": date}).
		QueryRowContext(ctx).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Puzzle{}, domain.ErrPuzzleNotFound
	}
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("load puzzle: %w", err)
	}
	var p domain.Puzzle
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Puzzle{}, fmt.Errorf("unmarshal puzzle: %w", err)
	}
	return p, nil
}

// PublishPuzzle inserts a new puzzle. An existing date is never overwritten.
func (s *Store) PublishPuzzle(ctx context.Context, p domain.Puzzle) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	res, err := s.sb.Insert("puzzles").Options("OR IGNORE").
		Columns("date", "title", "data").
		Values(p.Date, p.Title, string(data)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert puzzle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("publish %s: %w", p.Date, domain.ErrPuzzleExists)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, result domain.GameResult) (domain.GameResult, bool, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return domain.GameResult{}, false, err
	}
	res, err := s.sb.Insert("plays").Options("OR IGNORE").
		Columns("puzzle_date", "session_id", "data").
		Values(result.PuzzleDate, result.SessionID, string(data)).
		ExecContext(ctx)
	if err != nil {
		return domain.GameResult{}, false, fmt.Errorf("record play: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return result, true, nil
	}

	existing, ok, err := s.Get(ctx, result.PuzzleDate, result.SessionID)
	if err != nil {
		return domain.GameResult{}, false, err
	}
	if !ok {
		return domain.GameResult{}, false, fmt.Errorf("play %s/%s vanished while recording", result.PuzzleDate, result.SessionID)
	}
	return existing, false, nil
}

func (s *Store) Get(ctx context.Context, date, sessionID string) (domain.GameResult, bool, error) {
	var raw string
	err := s.sb.Select("data").From("plays").
		Where(sq.Eq{"puzzle_date": date, "session_id": sessionID}).
		QueryRowContext(ctx).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameResult{}, false, nil
	}
	if err != nil {
		return domain.GameResult{}, false, fmt.Errorf("lookup play: %w", err)
	}
	var result domain.GameResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return domain.GameResult{}, false, fmt.Errorf("decode play: %w", err)
	}
	return result, true, nil
}

func (s *Store) Archive(ctx context.Context, result domain.GameResult) error {
	selected, err := json.Marshal(result.SelectedClauseIDs)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return err
	}
	_, err = s.sb.Insert("game_results").Options("OR IGNORE").
		Columns("id", "puzzle_date", "session_id", "selected_clause_ids", "base_score",
			"bonus_score", "total_score", "user_answers", "completion_time_seconds", "submitted_at").
		Values(result.ID, result.PuzzleDate, result.SessionID, string(selected), result.Score.BaseScore,
			result.Score.BonusScore.String(), result.Score.TotalScore.String(), string(answers),
			result.CompletionTimeSeconds, result.SubmittedAt.UTC().Format(time.RFC3339Nano)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	return nil
}

// CountByDate returns how many results were archived for date.
func (s *Store) CountByDate(ctx context.Context, date string) (int, error) {
	var n int
	err := s.sb.Select("COUNT(*)").From("game_results").Where(sq.Eq{"puzzle_date": date}).
		QueryRowContext(ctx).Scan(&n)
	return n, err
}
