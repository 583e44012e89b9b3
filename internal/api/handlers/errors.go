package handlers

import (
	"errors"
	"net/http"

	"github.com/BROWN1213/picknic/internal/models"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors to HTTP statuses. Business rejections are
// client errors; an unavailable limiter is reported as 503 because the
// action was refused, not failed.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrPollNotFound),
		errors.Is(err, models.ErrOptionNotFound),
		errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyVoted),
		errors.Is(err, models.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPollClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrLimiterUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotPollCreator),
		errors.Is(err, models.ErrNotSystemAccount):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
