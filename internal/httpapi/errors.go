package httpapi

import (
	"errors"
	"net/http"

	"bondbridge/internal/apperr"
	"bondbridge/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// writeError is the single place where flow errors become HTTP responses.
// Internal errors are logged with their cause and answered with a generic message.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	if kind == apperr.KindInternal {
		logger.FromGin(c).Error("request failed", "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"status": status, "error": apperr.PublicMessage(err)})
}

// bindJSON decodes and validates the body into dst, writing a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status": http.StatusBadRequest,
			"error":  "validation failed",
			"fields": fieldErrors(verrs),
		})
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": http.StatusBadRequest, "error": "invalid json"})
	return false
}
