package api

import (
	"errors"
	"net/http"

	"skdev/storage-api/model"
	"skdev/storage-api/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) FileDelete(c *gin.Context) {
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
			"error":     "File not found. It either doesn't exist or you don't own it",
			"requestID": requestID,
		})
		return
	}

	err = a.DB.
		Where("id = ?", res.Record.ID).
		Delete(&model.File{}).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete file record", zap.Error(err))
		return
	}

	// Cached pages referencing the key simply age out, the record and its
	// snapshot are gone already
	_, err = a.S3.C.DeleteObject(c.Request.Context(), &s3.DeleteObjectInput{
		Bucket: a.S3.Bucket,
		Key:    aws.String(res.S3Key),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete file from S3", zap.String("s3Key", res.S3Key), zap.Error(err))
		return
	}

	c.Status(http.StatusOK)
}
