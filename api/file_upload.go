package api

import (
	"net/http"
	"strings"
	"time"

	s3store "skdev/storage-api/aws"
	"skdev/storage-api/model"
	"skdev/storage-api/util"
	"skdev/storage-api/validators"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileUpload pushes a multipart upload straight through the server into the
// requested storage tier. Clients that can talk to the store directly should
// prefer the presign flow.
func (a *API) FileUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file part in the request",
			"requestID": requestID,
		})
		return
	}

	tier := strings.ToLower(c.DefaultPostForm("tier", model.TierStandard))
	if tier != model.TierStandard && tier != model.TierGlacier {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid tier. Must be one of standard, glacier",
			"requestID": requestID,
		})
		return
	}

	status, f, contentType, err := validators.FileValidator(fh)
	if err != nil {
		c.AbortWithStatusJSON(status, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	name := util.SanitizeFileName(fh.Filename)
	if name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid file name provided",
			"requestID": requestID,
		})
		return
	}

	key := userID + "/" + name

	uploader := manager.NewUploader(a.S3.C, func(u *manager.Uploader) {
		u.Concurrency = 5
		u.PartSize = 6 << 20
	})

	_, err = uploader.Upload(c.Request.Context(), &s3.PutObjectInput{
		Bucket:        a.S3.Bucket,
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(contentType),
		StorageClass:  s3store.StorageClassForTier(tier),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to upload file to S3", zap.String("s3Key", key), zap.Error(err))
		return
	}

	now := time.Now().UnixMilli()

	var rec model.File

	err = a.DB.
		Where(model.File{UserID: userID, S3Key: key}).
		Assign(model.File{
			FileName:     name,
			UploadStatus: model.UploadComplete,
			LastModified: now,
		}).
		Attrs(model.File{CreatedAt: now}).
		FirstOrCreate(&rec).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to store file record", zap.String("s3Key", key), zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "File uploaded successfully",
		"file": gin.H{
			"file_name": name,
			"s3_key":    key,
			"tier":      tier,
		},
	})
}
