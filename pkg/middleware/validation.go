package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/carbon-ledger/pkg/common"
	"github.com/richxcame/carbon-ledger/pkg/validation"
)

// ValidateAndBind binds the JSON body into req and runs its binding rules.
// Returns false after writing a 400 response when the body is unusable.
func ValidateAndBind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondWithValidationError(c, validation.FromBindError(err))
		return false
	}
	return true
}

// RespondWithValidationError sends a standardized validation error response
func RespondWithValidationError(c *gin.Context, err error) {
	resp := common.Response{
		Success: false,
		Error:   &common.ErrorInfo{Code: http.StatusBadRequest, Message: "validation failed"},
	}

	var valErr *validation.ValidationError
	if errors.As(err, &valErr) {
		resp.Data = gin.H{"fields": valErr.Errors}
	} else {
		resp.Error.Message = "invalid request body: " + err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// ValidateJSONContentType rejects bodies that are not application/json
func ValidateJSONContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength != 0 && c.ContentType() != "application/json" {
			common.ErrorResponse(c, http.StatusUnsupportedMediaType, "content type must be application/json")
			c.Abort()
			return
		}
		c.Next()
	}
}

// MaxBodySize limits the request body size. Reads past the limit fail and the
// bind error surfaces as a 400.
func MaxBodySize(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}
