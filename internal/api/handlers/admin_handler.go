package handlers

import (
	"net/http"
	"strconv"

	"github.com/BROWN1213/picknic/internal/models"
	"github.com/BROWN1213/picknic/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the privileged aggregation and cleanup surface.
// The service layer re-checks that the caller is a system account; the
// handler only forwards the authenticated identity.
type AdminHandler struct {
	aggregates *services.AggregateService
}

func NewAdminHandler(aggregates *services.AggregateService) *AdminHandler {
	return &AdminHandler{aggregates: aggregates}
}

func (h *AdminHandler) RecalculateVotes(c *gin.Context) {
	summary, err := h.aggregates.RecalculateAll(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AdminHandler) RecalculatePoll(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	stats, err := h.aggregates.RecalculatePoll(c.Request.Context(), c.GetString("userID"), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) CleanupInvalidUsers(c *gin.Context) {
	summary, err := h.aggregates.CleanupInvalidUsers(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.aggregates.Stats(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) HotPolls(c *gin.Context) {
	polls, err := h.aggregates.HotPolls(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, polls)
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.aggregates.UpdateCategory(c.Request.Context(), c.GetString("userID"), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category updated"})
}

func (h *AdminHandler) UpdateOptionVotes(c *gin.Context) {
	var req models.UpdateOptionVotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.aggregates.SetOptionVotes(c.Request.Context(), c.GetString("userID"), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "option votes updated"})
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.POST("/recalculate-votes", h.RecalculateVotes)
		admin.POST("/recalculate-votes/:id", h.RecalculatePoll)
		admin.POST("/cleanup-invalid-users", h.CleanupInvalidUsers)
		admin.GET("/stats", h.Stats)
		admin.GET("/hot-polls", h.HotPolls)
		admin.POST("/polls/category", h.UpdateCategory)
		admin.POST("/polls/option-votes", h.UpdateOptionVotes)
	}
}
