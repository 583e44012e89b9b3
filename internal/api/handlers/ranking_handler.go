package handlers

import (
	"net/http"
	"strconv"

	"github.com/BROWN1213/picknic/internal/services"

	"github.com/gin-gonic/gin"
)

type RankingHandler struct {
	resolver *services.RankResolver
}

func NewRankingHandler(resolver *services.RankResolver) *RankingHandler {
	return &RankingHandler{resolver: resolver}
}

func (h *RankingHandler) Top(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	ranked, err := h.resolver.VisibleTop(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

func (h *RankingHandler) MyRank(c *gin.Context) {
	rank, ok, err := h.resolver.VisibleRank(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ranked": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranked": true, "rank": rank})
}

func (h *RankingHandler) RegisterRoutes(r *gin.RouterGroup) {
	rankings := r.Group("/rankings")
	{
		rankings.GET("", h.Top)
		rankings.GET("/me", h.MyRank)
	}
}
