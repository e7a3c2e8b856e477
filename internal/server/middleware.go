package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	clientCookie = "ikigai_client"
	clientHeader = "X-Client-ID"
	clientKey    = "clientID"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// RequestLoggingMiddleware logs every request once it has been handled.
func RequestLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.GetString(clientKey)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// ClientIDMiddleware identifies the browser or API client. The header wins
// over the cookie; a new id is issued as a cookie when neither is valid.
func ClientIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := validClientID(c.GetHeader(clientHeader))
		if id == "" {
			if v, err := c.Cookie(clientCookie); err == nil {
				id = validClientID(v)
			}
		}
		if id == "" {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(clientCookie, id, clientCookieMaxAge, "/", "", false, true)
		}
		c.Set(clientKey, id)
		c.Next()
	}
}

func validClientID(v string) string {
	id, err := uuid.Parse(v)
	if err != nil {
		return ""
	}
	return id.String()
}
