package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware returns a Gin middleware that tags each request with a
// request ID, stores a child logger in the request context and logs the
// completed request. Paths in skip are served without the completion line.
//
// For WebSocket upgrades the completion line is written once the handshake
// has been answered, not when the connection closes.
func GinMiddleware(logger zerolog.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		child := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()

		c.Header(headerRequestID, reqID)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), child))

		c.Next()

		if _, ok := skipped[c.FullPath()]; ok {
			return
		}

		evt := child.Info().
			Int(FieldStatus, c.Writer.Status()).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds()))

		// Actor info is set by the handshake handler once the token is verified.
		if userID, ok := c.Get(FieldUserID); ok {
			evt = evt.Interface(FieldUserID, userID)
		}
		if username, ok := c.Get(FieldUsername); ok {
			evt = evt.Interface(FieldUsername, username)
		}

		evt.Msg("request completed")
	}
}
