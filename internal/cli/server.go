package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/config"
	transport "tc-auditor-service/internal/transport/http"
)

func newStartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the puzzle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func printBanner() {
	figure.NewFigure("T&C Auditor", "", true).Print()
	fmt.Println("======================================================")
}

// newGameService builds the service on top of the configured backends.
func newGameService(cfg config.Config, b *backends, logger *slog.Logger) (*app.GameService, error) {
	table, err := cfg.Scoring.Table()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return app.NewGameService(app.GameDeps{
		Puzzles:   b.puzzles,
		Ledger:    b.ledger,
		Stats:     b.stats,
		Archive:   b.archive,
		Publisher: b.publisher,
		Logger:    logger,
	}, app.GameConfig{Scoring: table, Location: loc}), nil
}

func runServer(ctx context.Context, opts *rootOptions) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	printBanner()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	service, err := newGameService(cfg, b, logger)
	if err != nil {
		return err
	}
	if cfg.Content.SeedSample && b.publisher != nil {
		if err := seedSample(ctx, service, logger); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := transport.NewRouter(service, transport.RouterOptions{
		Logger:          logger,
		ExposeAnswerKey: cfg.Game.ExposeAnswerKey,
		SubmitRPS:       cfg.HTTP.SubmitRPS,
		SubmitBurst:     cfg.HTTP.SubmitBurst,
		AdminSecret:     cfg.Admin.JWTSecret,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting tc auditor service", "addr", server.Addr, "timezone", cfg.Game.Timezone, "today", service.TodayKey())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
