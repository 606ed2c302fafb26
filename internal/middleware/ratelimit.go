package middleware

import (
	"quiz_app_backend/internal/util"
	"quiz_app_backend/pkg/logger"
	"quiz_app_backend/pkg/monitoring"
	"quiz_app_backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit 已认证用户的每秒请求预算，须排在 AuthMiddleware 之后。
// 限流器自身出错时放行请求，限流是保护措施而不是可用性瓶颈。
func RateLimit(limiter ratelimit.Limiter, backend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), user.UserID)
		if err != nil {
			logger.Log.Error("限流检查失败，放行请求", zap.Error(err), zap.Uint("user_id", user.UserID))
			c.Next()
			return
		}

		if !decision.Allowed {
			monitoring.RateLimitDenials.WithLabelValues(backend).Inc()
			logger.Log.Debug("请求被限流",
				zap.Uint("user_id", user.UserID),
				zap.Duration("retry_after", decision.RetryAfter))
			util.TooManyRequests(c, decision.RetryAfter)
			c.Abort()
			return
		}
		c.Next()
	}
}
