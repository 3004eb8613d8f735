package api

import (
	"errors"
	"net/http"

	s3store "skdev/storage-api/aws"
	"skdev/storage-api/model"
	"skdev/storage-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileConfirm flips a pending record to complete once its object actually
// landed in the store. Confirmation is the only way a record becomes
// listable.
func (a *API) FileConfirm(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	res, err := a.Resolver.Resolve(userID, c.Param("id"))
	if err != nil && !errors.Is(err, service.ErrFileNotFound) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to resolve file identifier", zap.Error(err))
		return
	}

	if err != nil || res.Record == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "File not found",
			"requestID": requestID,
		})
		return
	}

	meta, err := a.Store.Head(c.Request.Context(), res.S3Key)
	if err != nil {
		if errors.Is(err, s3store.ErrObjectMissing) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Object hasn't been uploaded yet",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check uploaded object", zap.String("s3Key", res.S3Key), zap.Error(err))
		return
	}

	err = a.DB.
		Model(&model.File{}).
		Where("id = ?", res.Record.ID).
		Updates(map[string]any{
			"upload_status": model.UploadComplete,
			"last_modified": meta.LastModified.UnixMilli(),
		}).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to mark upload as complete", zap.String("s3Key", res.S3Key), zap.Error(err))
		return
	}

	// Seed the snapshot so the first listing after a confirm doesn't need
	// another store round trip
	a.Meta.WriteBack(res.Record, meta)

	c.JSON(http.StatusOK, gin.H{
		"message": "Upload confirmed",
		"file": gin.H{
			"id":       res.Record.ID,
			"s3_key":   res.S3Key,
			"metadata": metadataView(meta),
		},
	})
}
