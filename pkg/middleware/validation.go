package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/validation"
)

// ValidationErrorResponse is the body sent when a request fails validation.
type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Error   *common.ErrorInfo `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ValidateJSON binds the JSON body into req and validates it
func ValidateJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return err
	}
	return validation.ValidateStruct(req)
}

// RespondWithValidationError sends a 400 listing the offending fields when err
// is a *validation.ValidationError, or a generic bad request otherwise.
func RespondWithValidationError(c *gin.Context, err error) {
	var valErr *validation.ValidationError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  &common.ErrorInfo{Code: http.StatusBadRequest, Message: valErr.Error()},
			Fields: valErr.Errors,
		})
		return
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
}

// ValidateAndBind validates and binds request to the provided struct.
// Returns false after writing the error response.
func ValidateAndBind(c *gin.Context, req interface{}) bool {
	if err := ValidateJSON(c, req); err != nil {
		RespondWithValidationError(c, err)
		return false
	}
	return true
}

// MaxBodySize limits the request body size. Reads past the limit fail with
// *http.MaxBytesError, which RespondWithValidationError maps to 413.
func MaxBodySize(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxSize > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > maxSize {
				common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
				c.Abort()
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}
