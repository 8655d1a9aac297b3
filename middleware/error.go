package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// ErrorHandler middleware recovers from any panics and handles errors
func ErrorHandler(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					"err", err,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "An unexpected error occurred",
				})
			}
		}()

		c.Next()
	}
}
