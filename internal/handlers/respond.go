package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"diabcare/internal/apperrors"
	"diabcare/internal/validation"

	"github.com/gin-gonic/gin"
)

// respondError writes err with the status its category maps to. The error is
// also attached to the context so the request logger records it.
func respondError(c *gin.Context, err error, message string) {
	_ = c.Error(err)

	body := gin.H{"success": false, "message": message, "details": err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	if apperrors.Retryable(err) {
		body["retryable"] = true
	}
	c.JSON(apperrors.HTTPStatus(err), body)
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// idParam reads a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid " + name + " format"})
		return 0, false
	}
	return uint(id), true
}
