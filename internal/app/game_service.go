package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tc-auditor-service/internal/content"
	"tc-auditor-service/internal/domain"
)

// PuzzleStore resolves the canonical puzzle for a date (cache or backing store).
type PuzzleStore interface {
	GetPuzzle(ctx context.Context, date string) (domain.Puzzle, error)
}

// PlayLedger keeps at most one recorded result per session and date.
type PlayLedger interface {
	// Record stores result unless one already exists for its session and date.
	// It returns the stored result and whether this call created it.
	Record(ctx context.Context, result domain.GameResult) (domain.GameResult, bool, error)
	Get(ctx context.Context, date, sessionID string) (domain.GameResult, bool, error)
}

// StatsStore aggregates per-day play counters.
type StatsStore interface {
	Record(ctx context.Context, date string, realIDs, foundIDs []string, total decimal.Decimal) (domain.DayStats, error)
	Get(ctx context.Context, date string) (domain.DayStats, error)
}

// ResultArchive durably keeps recorded results.
type ResultArchive interface {
	Archive(ctx context.Context, result domain.GameResult) error
}

// PuzzlePublisher writes new puzzles to the backing store. Published puzzles are immutable.
type PuzzlePublisher interface {
	PublishPuzzle(ctx context.Context, p domain.Puzzle) error
}

// GameDeps wires the collaborators of a GameService. Archive, Publisher and Hub are optional.
type GameDeps struct {
	Puzzles   PuzzleStore
	Ledger    PlayLedger
	Stats     StatsStore
	Archive   ResultArchive
	Publisher PuzzlePublisher
	Hub       *StatsHub
	Logger    *slog.Logger
}

// GameConfig carries the tunables of a GameService.
type GameConfig struct {
	Scoring  ScoringTable
	Location *time.Location
}

// GameService contains the daily game use cases.
type GameService struct {
	puzzles   PuzzleStore
	ledger    PlayLedger
	stats     StatsStore
	archive   ResultArchive
	publisher PuzzlePublisher
	hub       *StatsHub
	logger    *slog.Logger

	table ScoringTable
	loc   *time.Location
	now   func() time.Time
	newID func() string
}

func NewGameService(deps GameDeps, cfg GameConfig) *GameService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewStatsHub()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	table := cfg.Scoring
	if table.Weights == nil {
		table = DefaultScoringTable()
	}
	return &GameService{
		puzzles:   deps.Puzzles,
		ledger:    deps.Ledger,
		stats:     deps.Stats,
		archive:   deps.Archive,
		publisher: deps.Publisher,
		hub:       hub,
		logger:    logger.With("component", "game_service"),
		table:     table,
		loc:       loc,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetClock is test-only for deterministic timestamps.
func (s *GameService) SetClock(now func() time.Time) {
	s.now = now
}

// ScoringTable returns the table the service scores with.
func (s *GameService) ScoringTable() ScoringTable {
	return s.table
}

// Today returns the puzzle date key of now in the configured timezone.
func (s *GameService) Today(now time.Time) string {
	return domain.DateKey(now.In(s.loc))
}

// TodayKey is Today for the service clock.
func (s *GameService) TodayKey() string {
	return s.Today(s.now())
}

// GetPuzzle returns the full puzzle, answer key included.
func (s *GameService) GetPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.Puzzle{}, err
	}
	return s.puzzles.GetPuzzle(ctx, date)
}

// GetPlayView returns the puzzle with the answer key withheld.
func (s *GameService) GetPlayView(ctx context.Context, date string) (domain.PlayView, error) {
	p, err := s.GetPuzzle(ctx, date)
	if err != nil {
		return domain.PlayView{}, err
	}
	return p.PlayView(), nil
}

// ScoreSubmission resolves the puzzle and scores the selection. Nothing is recorded.
func (s *GameService) ScoreSubmission(ctx context.Context, sub domain.Submission) (domain.Score, error) {
	p, err := s.resolve(ctx, sub)
	if err != nil {
		return domain.Score{}, err
	}
	return ScoreSelection(p, sub.SelectedClauseIDs, s.table)
}

func (s *GameService) resolve(ctx context.Context, sub domain.Submission) (domain.Puzzle, error) {
	if _, err := domain.ParseDate(sub.PuzzleDate); err != nil {
		return domain.Puzzle{}, err
	}
	if sub.CompletionTimeSeconds < 0 {
		return domain.Puzzle{}, fmt.Errorf("%w: %d", domain.ErrInvalidCompletionTime, sub.CompletionTimeSeconds)
	}
	return s.puzzles.GetPuzzle(ctx, sub.PuzzleDate)
}

// Submit scores a submission and records it once per session and date.
// A repeated submission returns the first recorded result with Replayed set.
func (s *GameService) Submit(ctx context.Context, sub domain.Submission) (domain.GameResult, error) {
	if sub.SessionID == "" {
		sub.SessionID = s.newID()
	}

	p, err := s.resolve(ctx, sub)
	if err != nil {
		return domain.GameResult{}, err
	}
	score, err := ScoreSelection(p, sub.SelectedClauseIDs, s.table)
	if err != nil {
		return domain.GameResult{}, err
	}

	result := domain.GameResult{
		ID:                    s.newID(),
		PuzzleDate:            p.Date,
		SessionID:             sub.SessionID,
		SelectedClauseIDs:     append([]string(nil), sub.SelectedClauseIDs...),
		Score:                 score,
		Answers:               BuildAnswers(p, sub.SelectedClauseIDs),
		CompletionTimeSeconds: sub.CompletionTimeSeconds,
		SubmittedAt:           s.now().UTC(),
	}

	stored, created, err := s.ledger.Record(ctx, result)
	if err != nil {
		return domain.GameResult{}, fmt.Errorf("record result: %w", err)
	}
	if !created {
		stored.Replayed = true
		s.logger.Info("replayed submission", "date", p.Date, "session_id", sub.SessionID)
		return stored, nil
	}

	s.logger.Info("scored submission",
		"date", p.Date,
		"session_id", sub.SessionID,
		"base", score.BaseScore,
		"total", score.TotalScore.String(),
		"completion_time_seconds", sub.CompletionTimeSeconds,
	)

	realIDs := make([]string, 0, len(p.RealClauses))
	for _, c := range p.RealClauses {
		realIDs = append(realIDs, c.ID)
	}
	stats, err := s.stats.Record(ctx, p.Date, realIDs, score.CorrectRealIDs, score.TotalScore)
	if err != nil {
		s.logger.Error("update stats", "date", p.Date, "err", err)
	} else {
		s.hub.Publish(stats)
	}

	if s.archive != nil {
		if err := s.archive.Archive(ctx, stored); err != nil {
			s.logger.Error("archive result", "date", p.Date, "id", stored.ID, "err", err)
		}
	}
	return stored, nil
}

// Review reveals the answer key for a session that has recorded a play for date.
func (s *GameService) Review(ctx context.Context, date, sessionID string) (domain.ReviewView, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.ReviewView{}, err
	}
	if sessionID == "" {
		return domain.ReviewView{}, domain.ErrNotRevealed
	}
	result, ok, err := s.ledger.Get(ctx, date, sessionID)
	if err != nil {
		return domain.ReviewView{}, fmt.Errorf("lookup result: %w", err)
	}
	if !ok {
		return domain.ReviewView{}, domain.ErrNotRevealed
	}
	p, err := s.puzzles.GetPuzzle(ctx, date)
	if err != nil {
		return domain.ReviewView{}, err
	}
	return p.ReviewView(result), nil
}

// Stats returns the play counters for date.
func (s *GameService) Stats(ctx context.Context, date string) (domain.DayStats, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.DayStats{}, err
	}
	return s.stats.Get(ctx, date)
}

// SubscribeStats streams DayStats updates for date, starting with the current snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) SubscribeStats(ctx context.Context, date string) (<-chan domain.DayStats, func(), error) {
	initial, err := s.Stats(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(date, initial)
	return ch, cancel, nil
}

// Publish validates puzzle content and hands it to the publisher.
func (s *GameService) Publish(ctx context.Context, p domain.Puzzle) error {
	if s.publisher == nil {
		return domain.ErrPublishDisabled
	}
	if err := content.Validate(p); err != nil {
		return err
	}
	if err := s.publisher.PublishPuzzle(ctx, p); err != nil {
		return err
	}
	s.logger.Info("published puzzle", "date", p.Date, "title", p.Title)
	return nil
}
