package handlers

import (
	"net/http"
	"strconv"

	"github.com/BROWN1213/picknic/internal/models"
	"github.com/BROWN1213/picknic/internal/services"
	"github.com/BROWN1213/picknic/internal/storage"

	"github.com/gin-gonic/gin"
)

type PollHandler struct {
	voteService *services.VoteService
	images      storage.ImageStore
}

func NewPollHandler(voteService *services.VoteService, images storage.ImageStore) *PollHandler {
	return &PollHandler{voteService: voteService, images: images}
}

func pollID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return 0, false
	}
	return uint(id), true
}

func (h *PollHandler) CreatePoll(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poll, err := h.voteService.CreatePoll(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, poll)
}

func (h *PollHandler) ListActive(c *gin.Context) {
	polls, err := h.voteService.ListActivePolls(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, polls)
}

func (h *PollHandler) ListMine(c *gin.Context) {
	polls, err := h.voteService.ListMyPolls(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, polls)
}

func (h *PollHandler) GetPoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	poll, err := h.voteService.GetPoll(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (h *PollHandler) CastVote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.voteService.CastVote(c.Request.Context(), c.GetString("userID"), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *PollHandler) MyVote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	record, err := h.voteService.MyVote(c.Request.Context(), c.GetString("userID"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusOK, gin.H{"voted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": true, "record": record})
}

func (h *PollHandler) ClosePoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	if err := h.voteService.ClosePoll(c.Request.Context(), c.GetString("userID"), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll closed"})
}

func (h *PollHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	url, err := h.images.UploadImage(c.Request.Context(), file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}

// RegisterRoutes wires the poll endpoints. All of them require auth.
func (h *PollHandler) RegisterRoutes(r *gin.RouterGroup) {
	polls := r.Group("/polls")
	{
		polls.POST("", h.CreatePoll)
		polls.GET("", h.ListActive)
		polls.GET("/mine", h.ListMine)
		polls.GET("/:id", h.GetPoll)
		polls.POST("/:id/vote", h.CastVote)
		polls.GET("/:id/my-vote", h.MyVote)
		polls.POST("/:id/close", h.ClosePoll)
		polls.POST("/image", h.UploadImage)
	}
}
