package middleware

import (
	"strconv"
	"strings"
	"time"

	"taxcalc/internal/obs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActor     = "X-Actor"

	actorKey = "actor"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one. The id
// is echoed in the response and carried on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(obs.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Actor stores the free-form caller id from X-Actor for audit records.
// Authentication is out of scope, so the header is taken as given.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := strings.TrimSpace(c.GetHeader(HeaderActor)); actor != "" {
			c.Set(actorKey, actor)
		}
		c.Next()
	}
}

// GetActor returns the actor set by Actor, or "".
func GetActor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// RequestLogger records one structured line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		evt := logger.Info()
		if status >= 500 {
			evt = logger.Error()
		}
		evt = evt.
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int("bytes", c.Writer.Size()).
			Str("request_id", obs.RequestID(c.Request.Context()))
		if actor := GetActor(c); actor != "" {
			evt = evt.Str("actor", actor)
		}
		if ip := c.ClientIP(); ip != "" {
			evt = evt.Str("remote_addr", ip)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Msg("http_request")
	}
}

// Metrics records request counts and latency by route template.
func Metrics(m *obs.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
