package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	s3store "skdev/storage-api/aws"
	"skdev/storage-api/model"
	"skdev/storage-api/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileDownload hands out a presigned download URL. Archived objects can't be
// read directly, those run through the restore protocol first and the client
// is told to come back once the store finished restoring.
func (a *API) FileDownload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	rec, err := a.Resolver.ResolveComplete(userID, c.Param("id"))
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

	meta, err := a.Store.Head(c.Request.Context(), rec.S3Key)
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

		zap.L().Error("Failed to fetch file metadata", zap.String("s3Key", rec.S3Key), zap.Error(err))
		return
	}

	if meta.Tier != model.TierStandard {
		result, err := a.Tiers.Change(c.Request.Context(), rec, rec.S3Key, model.TierStandard)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to start restore for download", zap.String("s3Key", rec.S3Key), zap.Error(err))
			return
		}

		if result.Outcome == service.TierRestoring {
			c.JSON(http.StatusAccepted, gin.H{
				"message":   "File is being restored. Try again later.",
				"requestID": requestID,
			})
			return
		}
	}

	presigned, err := a.S3.Presign.PresignGetObject(c.Request.Context(), &s3.GetObjectInput{
		Bucket: a.S3.Bucket,
		Key:    aws.String(rec.S3Key),
		ResponseContentDisposition: aws.String(
			fmt.Sprintf("attachment; filename=%q", rec.FileName),
		),
	}, s3.WithPresignExpires(time.Hour))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to presign download URL", zap.String("s3Key", rec.S3Key), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        presigned.URL,
		"expires_in": 3600,
	})
}
