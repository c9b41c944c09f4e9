package size

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/catalog/engine/infra/server/router"
)

// BodySizeLimiter caps request bodies at limit bytes. A request whose declared
// Content-Length is already over the limit is rejected before any handler
// reads it; bodies of unknown length fail with *http.MaxBytesError on read.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			router.RespondProblemWithCode(c, http.StatusRequestEntityTooLarge, router.ErrPayloadTooLargeCode,
				fmt.Sprintf("request body exceeds %d bytes", limit))
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
