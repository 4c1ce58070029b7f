package server

import (
	"net/http"
	"strings"

	"ecoguardian/backend/server/api"
	"ecoguardian/backend/verdict"

	"github.com/gin-gonic/gin"
)

// GetUserSummary handles GET /users/:user_id/summary.
func (h *Handlers) GetUserSummary(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		respondError(c, verdict.New(verdict.InvalidInput, "Missing user_id."))
		return
	}
	summary, err := h.ledger.UserSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, verdict.Wrap(verdict.InternalError, "Internal error", err))
		return
	}
	c.JSON(http.StatusOK, api.UserSummaryResponse{
		UserID:  summary.UserID,
		Reports: summary.Reports,
		Points:  summary.Points,
	})
}
