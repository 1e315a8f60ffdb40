package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/ctxkeys"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

// GetRequestID returns the ID set by RequestIDMiddleware, or ""
func GetRequestID(c *gin.Context) string {
	return c.GetString(string(ctxkeys.KeyRequestID))
}

// GetContextLogger returns an entry tagged with the request ID, route and
// session actor (empty for anonymous requests).
func GetContextLogger(c *gin.Context, logger logging.Logger) logging.Entry {
	return logger.WithFields(logging.Fields{
		"request_id": GetRequestID(c),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
		"client_ip":  c.ClientIP(),
		"actor_id":   c.GetString(string(ctxkeys.KeyActorID)),
	})
}
