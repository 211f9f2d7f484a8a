package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"walkin/internal/shared/apperr"
	"walkin/pkg/logger"
)

// RespondJSON writes the standard envelope
func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errs interface{}) {
	c.JSON(code, Envelope{
		Status:  status,
		Code:    code,
		Message: message,
		Data:    data,
		Errors:  errs,
	})
}

// RespondError maps a domain error onto the envelope
func RespondError(c *gin.Context, message string, err error) {
	code := apperr.StatusCode(err)
	detail := gin.H{
		"code":   apperr.Code(err),
		"detail": err.Error(),
	}
	if errors.Is(err, apperr.ErrCapacityConflict) {
		detail["requires_confirmation"] = true
	}
	if code >= http.StatusInternalServerError {
		logger.GetDefault().LogHTTPError(c, err, code)
	}
	RespondJSON(c, "error", code, message, nil, detail)
}
