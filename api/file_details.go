package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	s3store "skdev/storage-api/aws"
	"skdev/storage-api/model"
	"skdev/storage-api/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) FileDetails(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	useCache := strings.EqualFold(c.DefaultQuery("use_cache", "true"), "true")

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

	switch {
	case res.Record != nil && res.Record.UploadStatus == model.UploadComplete:
		meta, err = a.Meta.Get(c.Request.Context(), res.Record, useCache)
	case res.Record != nil:
		// Pending records don't exist as far as reads are concerned
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "File not found",
			"requestID": requestID,
		})
		return
	default:
		// No database record, the object may still live in the store
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

		zap.L().Error("Failed to fetch file metadata", zap.String("s3Key", res.S3Key), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, fileDetails(res, meta))
}

func fileDetails(res *service.Resolution, meta *s3store.ObjectMeta) gin.H {
	return gin.H{
		"file_name":       res.S3Key[strings.LastIndex(res.S3Key, "/")+1:],
		"simple_url":      s3store.BucketURL() + res.S3Key,
		"metadata":        metadataView(meta),
		"upload_complete": model.UploadComplete,
		"id":              strings.ReplaceAll(res.S3Key, "/", "-"),
		"s3_key":          res.S3Key,
		"exists_in_db":    res.Record != nil,
	}
}

func metadataView(meta *s3store.ObjectMeta) gin.H {
	return gin.H{
		"tier":          meta.Tier,
		"size":          meta.Size,
		"content_type":  meta.ContentType,
		"last_modified": meta.LastModified.UTC().Format(time.RFC3339),
	}
}
