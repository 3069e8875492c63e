package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/domain"
	"bookshelf/internal/identity"
	"bookshelf/internal/token"
)

const identityKey = "bookshelf.identity"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthRequired authenticates a request: bearer token from the Authorization
// header, local signature/expiry check, then a directory lookup to confirm
// the subject still exists. Any failure rejects the request; an unreachable
// identity service rejects too rather than admitting an uncorroborated
// caller. The response body is the same generic 401 in every case; the
// actual cause goes only to the log.
func AuthRequired(codec *token.Codec, resolver identity.Resolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			rejectUnauthenticated(c)
			return
		}

		userID, err := codec.Verify(strings.TrimSpace(raw))
		if err != nil {
			if logger != nil {
				logger.Debugf("auth: token rejected: %v", err)
			}
			rejectUnauthenticated(c)
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			if logger != nil {
				switch {
				case errors.Is(err, identity.ErrUserNotFound):
					logger.Warnf("auth: token subject %s no longer exists", userID)
				case errors.Is(err, identity.ErrUnavailable):
					logger.Warnf("auth: identity service unreachable, rejecting %s", userID)
				default:
					logger.Warnf("auth: resolve %s: %v", userID, err)
				}
			}
			rejectUnauthenticated(c)
			return
		}

		c.Set(identityKey, user)
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
}

// CurrentUser returns the identity AuthRequired attached to the request.
func CurrentUser(c *gin.Context) (*domain.UserProfile, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.UserProfile)
	return user, ok && user != nil
}
