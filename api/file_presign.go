package api

import (
	"net/http"
	"strings"
	"time"

	s3store "skdev/storage-api/aws"
	"skdev/storage-api/model"
	"skdev/storage-api/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FilePresign issues a presigned upload URL and a pending record. The record
// stays invisible to listings until the upload is confirmed.
func (a *API) FilePresign(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	fileName := c.Query("file_name")
	if fileName == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "File name parameter is missing.",
			"requestID": requestID,
		})
		return
	}

	name := util.SanitizeFileName(fileName)
	if name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid file name provided",
			"requestID": requestID,
		})
		return
	}

	tier := strings.ToLower(c.DefaultQuery("tier", model.TierStandard))
	if tier != model.TierStandard && tier != model.TierGlacier {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid tier. Must be one of standard, glacier",
			"requestID": requestID,
		})
		return
	}

	key := userID + "/" + name

	presigned, err := a.S3.Presign.PresignPutObject(c.Request.Context(), &s3.PutObjectInput{
		Bucket:       a.S3.Bucket,
		Key:          aws.String(key),
		StorageClass: s3store.StorageClassForTier(tier),
	}, s3.WithPresignExpires(time.Hour))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to presign upload URL", zap.String("s3Key", key), zap.Error(err))
		return
	}

	// Re-presigning the same name reuses the pending record instead of
	// stacking duplicates
	var rec model.File

	err = a.DB.
		Where(model.File{UserID: userID, S3Key: key}).
		Attrs(model.File{
			FileName:     name,
			UploadStatus: model.UploadPending,
			CreatedAt:    time.Now().UnixMilli(),
		}).
		FirstOrCreate(&rec).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create pending record", zap.String("s3Key", key), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"presigned_url": presigned.URL,
		"file_name":     key,
		"temp_id":       rec.ID,
	})
}
