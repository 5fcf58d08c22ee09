package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
)

type StatsHandler struct {
	stats *app.StatsService
}

func NewStatsHandler(stats *app.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) Profile(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	profile, err := h.stats.Profile(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *StatsHandler) Sessions(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, domain.NewValidationError("page must be a positive integer."))
			return
		}
		page = parsed
	}

	sessions, err := h.stats.UserSessions(c.Request.Context(), caller(c), id, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *StatsHandler) Stats(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	stats, err := h.stats.UserStats(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		respondError(c, domain.ErrUserNotFound)
		return 0, false
	}
	return id, true
}
