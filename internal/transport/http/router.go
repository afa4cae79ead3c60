package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/domain"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger          *slog.Logger
	ExposeAnswerKey bool
	SubmitRPS       float64
	SubmitBurst     int

	// AdminSecret signs publisher tokens. Publishing is disabled when empty.
	AdminSecret    string
	AllowedOrigins []string
}

// NewRouter wires the game endpoints onto a gin engine.
func NewRouter(service *app.GameService, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	games := NewGameHandler(service, logger, opts.ExposeAnswerKey)
	ws := NewWSHandler(service, logger, opts.AllowedOrigins)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", games.Health)

	api := r.Group("/api")
	{
		game := api.Group("/game")
		game.GET("/today", games.Today)
		game.GET("/:date", games.PlayView)
		game.GET("/:date/review", games.Review)
		if opts.ExposeAnswerKey {
			game.GET("/:date/full", games.FullPuzzle)
		}

		submit := []gin.HandlerFunc{games.Submit}
		if opts.SubmitRPS > 0 {
			limiter := newIPRateLimiter(opts.SubmitRPS, opts.SubmitBurst)
			submit = append([]gin.HandlerFunc{limiter.middleware()}, submit...)
		}
		game.POST("/submit", submit...)

		stats := api.Group("/stats")
		stats.GET("/:date", games.Stats)
		stats.GET("/:date/ws", ws.ServeStats)

		admin := api.Group("/admin")
		if opts.AdminSecret != "" {
			admin.POST("/puzzles", requireRole([]byte(opts.AdminSecret), PublisherRole), games.Publish)
		} else {
			admin.POST("/puzzles", func(c *gin.Context) {
				writeError(c, logger, domain.ErrPublishDisabled)
			})
		}
	}
	return r
}
