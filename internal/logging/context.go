package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Keys the middleware stores on the gin context.
const (
	KeyRequestID = "request_id"
	KeyStartTime = "start_time"
)

// withRequest tags e with the request id, route and elapsed time.
func withRequest(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if id := c.GetString(KeyRequestID); id != "" {
		e.Str("request_id", id)
	}
	if c.Request != nil {
		e.Str("method", c.Request.Method)
		if route := c.FullPath(); route != "" {
			e.Str("route", route)
		}
	}
	if v, ok := c.Get(KeyStartTime); ok {
		if t, ok := v.(time.Time); ok {
			e.Dur("elapsed", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withRequest(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withRequest(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withRequest(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withRequest(c, log.Error()) }
