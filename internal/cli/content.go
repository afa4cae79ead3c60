package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/content"
	"tc-auditor-service/internal/domain"
	transport "tc-auditor-service/internal/transport/http"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Publish puzzle files (or the bundled sample) to the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" && cfg.SQLite.Path == "" {
				return fmt.Errorf("seed needs postgres.url or sqlite.path")
			}
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

			if dir == "" {
				dir = cfg.Content.Dir
			}
			var puzzles []domain.Puzzle
			if dir == "" {
				sample, err := content.Sample()
				if err != nil {
					return err
				}
				puzzles = []domain.Puzzle{sample}
			} else if puzzles, err = content.LoadDir(dir); err != nil {
				return err
			}

			published, skipped := 0, 0
			for _, p := range puzzles {
				err := service.Publish(ctx, p)
				switch {
				case err == nil:
					published++
				case errors.Is(err, domain.ErrPuzzleExists):
					skipped++
				default:
					return fmt.Errorf("publish %s: %w", p.Date, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d, already present %d\n", published, skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of puzzle files (defaults to content.dir)")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file|dir]...",
		Short: "Check puzzle files against the content rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, arg := range args {
				puzzles, err := loadPuzzles(arg)
				if err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", arg, err)
					failed++
					continue
				}
				for _, p := range puzzles {
					if err := content.Validate(p); err != nil {
						fmt.Fprintf(out, "FAIL %s: %v\n", p.Date, err)
						failed++
						continue
					}
					fmt.Fprintf(out, "ok   %s %s\n", p.Date, p.Title)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d puzzle(s) failed validation", failed)
			}
			return nil
		},
	}
}

func loadPuzzles(path string) ([]domain.Puzzle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return content.LoadDir(path)
	}
	p, err := content.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Puzzle{p}, nil
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var (
		puzzlePath string
		ids        string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a selection offline against a puzzle file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			table, err := cfg.Scoring.Table()
			if err != nil {
				return err
			}

			var p domain.Puzzle
			if puzzlePath == "" {
				p, err = content.Sample()
			} else {
				p, err = content.LoadFile(puzzlePath)
			}
			if err != nil {
				return err
			}

			var selected []string
			for _, id := range strings.Split(ids, ",") {
				if id = strings.TrimSpace(id); id != "" {
					selected = append(selected, id)
				}
			}
			score, err := app.ScoreSelection(p, selected, table)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(score)
		},
	}
	cmd.Flags().StringVar(&puzzlePath, "puzzle", "", "puzzle file (defaults to the bundled sample)")
	cmd.Flags().StringVar(&ids, "ids", "", "comma-separated clause ids")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a publisher token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			token, err := transport.IssueAdminToken([]byte(cfg.Admin.JWTSecret), subject, transport.PublisherRole, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "editor", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
