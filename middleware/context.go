package middleware

import (
	"github.com/MrEthical07/tokengate"
	"github.com/gin-gonic/gin"
)

// RequestContext copies client IP, endpoint, user agent and request id onto
// the request context so engine audit events carry them. It must run after
// RequestID.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		ctx := c.Request.Context()
		ctx = tokengate.WithClientIP(ctx, c.ClientIP())
		ctx = tokengate.WithEndpoint(ctx, c.Request.Method+" "+path)
		ctx = tokengate.WithUserAgent(ctx, c.Request.UserAgent())
		if id := RequestIDFromContext(c); id != "" {
			ctx = tokengate.WithRequestID(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
