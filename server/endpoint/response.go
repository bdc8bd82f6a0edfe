package endpoint

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/mira/errors"
)

// requestIDHeader matches middleware.HeaderRequestID.
const requestIDHeader = "X-Request-Id"

// Fail aborts the request with err rendered as an error body. Errors that
// are not AppErrors are served as an opaque 500.
func Fail(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), appErr.Body(c.GetHeader(requestIDHeader)))
}
