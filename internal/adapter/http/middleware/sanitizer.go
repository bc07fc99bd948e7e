package middleware

import (
	"net/http"

	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize limits the request body. A declared Content-Length above the
// limit is refused up front; otherwise reads past the limit fail and the
// handler's bind reports it.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, &apperror.AppError{
				Code:       apperror.CodeValidation,
				Message:    "Request body too large",
				HTTPStatus: http.StatusRequestEntityTooLarge,
			})
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
