package api

import (
	"errors"
	"net/http"

	s3store "skdev/storage-api/aws"
	"skdev/storage-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileRefresh forces a live metadata fetch and snapshot refresh regardless
// of cache freshness.
func (a *API) FileRefresh(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

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

	var meta *s3store.ObjectMeta

	if res.Record != nil {
		meta, err = a.Meta.Get(c.Request.Context(), res.Record, false)
	} else {
		meta, err = a.Store.Head(c.Request.Context(), res.S3Key)
	}
	if err != nil {
		if errors.Is(err, s3store.ErrObjectMissing) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found in S3",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to refresh file metadata", zap.String("s3Key", res.S3Key), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Metadata refreshed",
		"metadata": metadataView(meta),
	})
}
