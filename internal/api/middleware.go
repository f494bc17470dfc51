package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rongwang/expense-tracker-server/internal/metrics"
	"github.com/rongwang/expense-tracker-server/internal/service"
	"go.uber.org/zap"
)

const userIDKey = "userId"

// AuthMiddleware returns a Gin middleware for authentication
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the JWT token from the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			failure(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", nil)
			return
		}

		// Check if the Authorization header starts with "Bearer "
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			failure(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid token format", nil)
			return
		}

		jwtSecret := c.MustGet("jwtSecret").([]byte)
		claims, err := service.ParseToken(jwtSecret, parts[1])
		if err != nil {
			failure(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid token", nil)
			return
		}
		if claims.Subject == "" {
			failure(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid user ID in token", nil)
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// JWTSecret exposes the signing secret to AuthMiddleware
func JWTSecret(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		c.Set("jwtSecret", key)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RequestLogger writes one structured line per request
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIp", c.ClientIP()),
		}
		if uid := currentUserID(c); uid != "" {
			fields = append(fields, zap.String("userId", uid))
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

// RateLimiter counts requests per client IP in Redis and blocks a client that
// exceeds limit within window for blockDuration. It runs ahead of
// authentication, so the IP is the only identity available. A nil client
// disables it and Redis failures let the request through.
func RateLimiter(rdb *redis.Client, limit int, window, blockDuration time.Duration, keyPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		key := keyPrefix + ":ip:" + c.ClientIP()
		blockKey := key + ":blocked"

		if blocked, _ := rdb.Get(ctx, blockKey).Result(); blocked == "1" {
			ttl, _ := rdb.TTL(ctx, blockKey).Result()
			tooManyRequests(c, keyPrefix, ttl)
			return
		}

		var incr *redis.IntCmd
		var ttlCmd *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttlCmd = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			c.Next()
			return
		}
		count, ttl := incr.Val(), ttlCmd.Val()

		// A counter without an expiry would never reset
		if ttl < 0 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				c.Next()
				return
			}
			ttl = window
		}

		if count > int64(limit) {
			if err := rdb.Set(ctx, blockKey, "1", blockDuration).Err(); err != nil {
				c.Next()
				return
			}
			tooManyRequests(c, keyPrefix, blockDuration)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, route string, retryAfter time.Duration) {
	metrics.ObserveRateLimited(route)
	c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	failure(c, http.StatusTooManyRequests, CodeRateLimited,
		"Too many requests. Try again in "+retryAfter.String(), nil)
}
