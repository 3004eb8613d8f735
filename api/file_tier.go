package api

import (
	"errors"
	"net/http"
	"strings"

	"skdev/storage-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type tierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func (a *API) FileTier(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var body tierRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No tier provided",
			"requestID": requestID,
		})
		return
	}

	res, err := a.Resolver.Resolve(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to resolve file identifier", zap.Error(err))
		return
	}

	result, err := a.Tiers.Change(c.Request.Context(), res.Record, res.S3Key, strings.ToLower(body.Tier))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTier):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid tier. Must be one of standard, glacier",
				"requestID": requestID,
			})
		case errors.Is(err, service.ErrFileNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found in S3",
				"requestID": requestID,
			})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to change file tier", zap.String("s3Key", res.S3Key), zap.Error(err))
		}
		return
	}

	switch result.Outcome {
	case service.TierRestoring:
		// Distinct status so clients can tell "come back later" from done
		c.JSON(http.StatusAccepted, gin.H{
			"message":   "File is being restored. Try again later.",
			"requestID": requestID,
		})
	case service.TierUnchanged:
		c.JSON(http.StatusOK, gin.H{
			"message":  "Tier unchanged",
			"metadata": metadataView(result.Meta),
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"message":  "Tier changed",
			"metadata": metadataView(result.Meta),
		})
	}
}
