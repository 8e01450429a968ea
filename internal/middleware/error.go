package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/domain/dto"
)

// ErrorHandler renders errors attached with c.Error when the handler chain
// did not write a response itself.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	c.JSON(status, dto.NewErrorResponse(http.StatusText(status), c.Errors.Last().Err))
}

// AbortWithError records err on the context and aborts with a JSON ErrorResponse.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
