package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tc-auditor-service/internal/app"
	"tc-auditor-service/internal/content"
	"tc-auditor-service/internal/domain"
)

const (
	maxSubmitBody  = 64 << 10
	maxPublishBody = 1 << 20
)

// GameHandler serves the REST endpoints of the daily game.
type GameHandler struct {
	service         *app.GameService
	logger          *slog.Logger
	exposeAnswerKey bool
}

func NewGameHandler(service *app.GameService, logger *slog.Logger, exposeAnswerKey bool) *GameHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameHandler{service: service, logger: logger, exposeAnswerKey: exposeAnswerKey}
}

type submitRequest struct {
	PuzzleDate            string   `json:"puzzle_date"`
	SessionID             string   `json:"session_id"`
	SelectedClauseIDs     []string `json:"selected_clause_ids"`
	CompletionTimeSeconds int      `json:"completion_time_seconds"`
}

type breakdownEntry struct {
	Rarity domain.Rarity `json:"rarity"`
	Bonus  float64       `json:"bonus"`
}

type scoreBody struct {
	BaseScore              int                       `json:"base_score"`
	BonusScore             float64                   `json:"bonus_score"`
	TotalScore             float64                   `json:"total_score"`
	MaxScore               float64                   `json:"max_score"`
	CorrectAnswers         []string                  `json:"correct_answers"`
	LegalDetectorBreakdown map[string]breakdownEntry `json:"legal_detector_breakdown"`
}

type submitResponse struct {
	ResultID   string `json:"result_id"`
	SessionID  string `json:"session_id"`
	PuzzleDate string `json:"puzzle_date"`
	scoreBody
	Replayed bool `json:"replayed"`
}

type reviewResponse struct {
	Date    string                  `json:"date"`
	Title   string                  `json:"title"`
	Clauses []domain.RevealedClause `json:"clauses"`
	Score   scoreBody               `json:"score"`
}

func newScoreBody(s domain.Score) scoreBody {
	breakdown := make(map[string]breakdownEntry, len(s.PerClauseRarityBonus))
	for id, b := range s.PerClauseRarityBonus {
		breakdown[id] = breakdownEntry{Rarity: b.Rarity, Bonus: b.Bonus.InexactFloat64()}
	}
	correct := s.CorrectRealIDs
	if correct == nil {
		correct = []string{}
	}
	return scoreBody{
		BaseScore:              s.BaseScore,
		BonusScore:             s.BonusScore.InexactFloat64(),
		TotalScore:             s.TotalScore.InexactFloat64(),
		MaxScore:               s.MaxScore.InexactFloat64(),
		CorrectAnswers:         correct,
		LegalDetectorBreakdown: breakdown,
	}
}

func (h *GameHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Today serves the play view for the current date in the game timezone.
func (h *GameHandler) Today(c *gin.Context) {
	h.playView(c, h.service.TodayKey())
}

func (h *GameHandler) PlayView(c *gin.Context) {
	h.playView(c, c.Param("date"))
}

func (h *GameHandler) playView(c *gin.Context, date string) {
	view, err := h.service.GetPlayView(c.Request.Context(), date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// FullPuzzle serves the puzzle with its answer key; only routed when explicitly enabled.
func (h *GameHandler) FullPuzzle(c *gin.Context) {
	p, err := h.service.GetPuzzle(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *GameHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmitBody)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.service.Submit(c.Request.Context(), domain.Submission{
		PuzzleDate:            req.PuzzleDate,
		SessionID:             req.SessionID,
		SelectedClauseIDs:     req.SelectedClauseIDs,
		CompletionTimeSeconds: req.CompletionTimeSeconds,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, submitResponse{
		ResultID:   result.ID,
		SessionID:  result.SessionID,
		PuzzleDate: result.PuzzleDate,
		scoreBody:  newScoreBody(result.Score),
		Replayed:   result.Replayed,
	})
}

func (h *GameHandler) Review(c *gin.Context) {
	view, err := h.service.Review(c.Request.Context(), c.Param("date"), c.Query("session_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, reviewResponse{
		Date:    view.Date,
		Title:   view.Title,
		Clauses: view.Clauses,
		Score:   newScoreBody(view.Score),
	})
}

func (h *GameHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Publish accepts a puzzle as JSON and stores it for its date.
func (h *GameHandler) Publish(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPublishBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	p, err := content.Decode(data, ".json")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.service.Publish(c.Request.Context(), p); err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("puzzle published via api", "date", p.Date, "subject", c.GetString("admin_subject"))
	c.JSON(http.StatusCreated, gin.H{"date": p.Date})
}
