package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"skdev/storage-api/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func (a *API) FileList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	pageStr := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid pagination parameters. 'page' and 'per_page' must be positive integers.",
			"requestID": requestID,
		})
		return
	}

	perPageStr := c.DefaultQuery("per_page", strconv.Itoa(viper.GetInt("listing.default_per_page")))
	perPage, err := strconv.Atoi(perPageStr)
	if err != nil || perPage < 1 || perPage > viper.GetInt("listing.max_per_page") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid pagination parameters. 'page' and 'per_page' must be positive integers.",
			"requestID": requestID,
		})
		return
	}

	req := service.ListRequest{
		Owner:    userID,
		Mode:     service.ModeOffset,
		Page:     page,
		PerPage:  perPage,
		UseCache: strings.EqualFold(c.DefaultQuery("use_cache", "true"), "true"),
	}

	// The presence of the cursor parameter selects cursor mode, an empty
	// value starts at the most recent record
	if cursor, ok := c.GetQuery("cursor"); ok {
		req.Mode = service.ModeCursor
		req.Cursor = cursor
	}

	result, err := a.Lister.ListPage(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCursor) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid cursor provided",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list user files", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, result)
}
