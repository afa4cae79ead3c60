package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tc-auditor-service/internal/domain"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Reason   string   `json:"reason,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDate), errors.Is(err, domain.ErrInvalidCompletionTime):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotRevealed):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPuzzleNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPuzzleExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSelection), errors.Is(err, domain.ErrInvalidPuzzle):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPublishDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	if reason, ok := domain.SelectionReasonOf(err); ok {
		body.Reason = string(reason)
	}
	var perr *domain.PuzzleError
	if errors.As(err, &perr) {
		body.Problems = perr.Problems
	}

	switch {
	case status == http.StatusInternalServerError:
		logger.Error("request failed", "path", c.FullPath(), "err", err)
		body.Error = "internal error"
	case status >= http.StatusInternalServerError:
		logger.Warn("request failed", "path", c.FullPath(), "status", status, "err", err)
	default:
		logger.Debug("request rejected", "path", c.FullPath(), "status", status, "err", err)
	}
	c.AbortWithStatusJSON(status, body)
}
