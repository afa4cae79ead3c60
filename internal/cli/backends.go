package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/config"
	"tc-auditor-service/internal/content"
	"tc-auditor-service/internal/domain"
	"tc-auditor-service/internal/infra/memory"
	"tc-auditor-service/internal/infra/postgres"
	rediscache "tc-auditor-service/internal/infra/redis"
	"tc-auditor-service/internal/infra/sqlite"
)

// backends holds the stores selected by configuration.
type backends struct {
	loader    memory.PuzzleLoader
	publisher app.PuzzlePublisher
	puzzles   app.PuzzleStore
	ledger    app.PlayLedger
	stats     app.StatsStore
	archive   app.ResultArchive

	closers []func() error
}

func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// openPuzzleSource picks the backing store for puzzle content: Postgres, then SQLite,
// then a content directory, then the bundled sample held in memory.
func openPuzzleSource(ctx context.Context, cfg config.Config, logger *slog.Logger, b *backends) error {
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		store := postgres.NewPuzzleStore(pool)
		b.loader, b.publisher = store, store

		db := openBun(cfg.Postgres.URL)
		b.closers = append(b.closers, db.Close)
		b.archive = postgres.NewResultArchive(db)
		logger.Info("puzzle source", "backend", "postgres")

	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, store.Close)
		b.loader, b.publisher = store, store
		b.ledger, b.archive = store, store
		logger.Info("puzzle source", "backend", "sqlite", "path", cfg.SQLite.Path)

	case cfg.Content.Dir != "":
		b.loader = content.NewDirLoader(cfg.Content.Dir)
		logger.Info("puzzle source", "backend", "content_dir", "dir", cfg.Content.Dir)

	default:
		sample, err := content.Sample()
		if err != nil {
			return err
		}
		static := memory.NewStaticPuzzleLoader(sample)
		b.loader, b.publisher = static, static
		logger.Info("puzzle source", "backend", "memory", "sample_date", sample.Date)
	}
	return nil
}

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// openBackends wires the puzzle cache, play ledger, stats and archive.
func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}
	if err := openPuzzleSource(ctx, cfg, logger, b); err != nil {
		b.Close()
		return nil, err
	}

	puzzleTTL := config.TTLDuration(cfg.Puzzle.TTL, 10*time.Minute)
	ledgerTTL := config.TTLDuration(cfg.Game.LedgerTTL, 48*time.Hour)
	statsTTL := config.TTLDuration(cfg.Redis.TTL, 48*time.Hour)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, client.Close)
		b.puzzles = rediscache.NewPuzzleRepository(client, b.loader, puzzleTTL)
		b.ledger = rediscache.NewPlayLedger(client, ledgerTTL)
		b.stats = rediscache.NewStatsStore(client, statsTTL)
	} else {
		b.puzzles = memory.NewPuzzleRepository(b.loader, puzzleTTL)
		if b.ledger == nil {
			b.ledger = memory.NewPlayLedger()
		}
		b.stats = memory.NewStatsStore()
	}

	b.puzzles = app.NewRetryingStore(b.puzzles, cfg.RetryPolicy(), logger)
	return b, nil
}

// seedSample publishes the bundled sample puzzle, ignoring an existing one.
func seedSample(ctx context.Context, service *app.GameService, logger *slog.Logger) error {
	sample, err := content.Sample()
	if err != nil {
		return err
	}
	err = service.Publish(ctx, sample)
	switch {
	case err == nil:
		logger.Info("seeded sample puzzle", "date", sample.Date)
	case errors.Is(err, domain.ErrPuzzleExists):
	default:
		return fmt.Errorf("seed sample: %w", err)
	}
	return nil
}
