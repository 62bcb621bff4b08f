package handlers

import (
	"net/http"

	"wordchain/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats *service.StatsService
}

func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) AllTime(c *gin.Context) {
	stats, err := h.stats.AllTime(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
