package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) UserUsage(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	sum, err := a.Usage.Aggregate(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to aggregate usage", zap.String("userID", userID), zap.Error(err))
		return
	}

	c.Header("Cache-Control", "max-age=60")
	c.JSON(http.StatusOK, sum)
}
