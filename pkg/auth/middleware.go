package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/ctxkeys"
)

// ServiceAuthMiddleware guards internal routes with a static bearer token
func ServiceAuthMiddleware(acceptedTokens ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		if err := ValidateServiceToken(token, acceptedTokens...); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(string(ctxkeys.KeyAuthType), "service")
		c.Next()
	}
}

// SessionMiddleware resolves the session actor from a Bearer header or the
// access_token cookie. It never rejects: requests without a valid session
// continue anonymously and downstream handlers decide what that means.
func SessionMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			if cookieToken, err := c.Cookie("access_token"); err == nil && cookieToken != "" {
				raw = "Bearer " + cookieToken
			}
		}

		token, ok := bearerToken(raw)
		if !ok {
			c.Next()
			return
		}

		claims, err := ValidateJWT(token, secret)
		if err != nil {
			c.Next()
			return
		}

		c.Set(string(ctxkeys.KeyActorID), claims.UserID)
		c.Set(string(ctxkeys.KeyUsername), claims.Username)
		c.Set(string(ctxkeys.KeyRole), claims.Role)
		c.Set(string(ctxkeys.KeyAuthType), "jwt")
		c.Request = c.Request.WithContext(ctxkeys.WithActorID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// ActorID returns the session actor set by SessionMiddleware, or "".
func ActorID(c *gin.Context) string {
	return c.GetString(string(ctxkeys.KeyActorID))
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
