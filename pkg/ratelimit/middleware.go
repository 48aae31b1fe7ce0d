package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/common"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Identify returns the caller key and whether it names a user
type Identify func(c *gin.Context) (string, IdentityType)

// UserOrIP identifies by the :user_id path parameter, falling back to the client IP
func UserOrIP(c *gin.Context) (string, IdentityType) {
	if id := c.Param("user_id"); id != "" {
		return id, IdentityAuthenticated
	}
	return c.ClientIP(), IdentityAnonymous
}

// Middleware rejects requests over budget with 429. Limiter failures let the
// request through.
func Middleware(l *Limiter, identify Identify) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		identity, identityType := identify(c)
		rule := l.RuleFor(endpoint, identityType)

		result, err := l.Allow(c.Request.Context(), endpoint, identity, rule, identityType)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			common.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
