package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/service"
	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/event"
)

const (
	ctxRequestID = "request_id"
	ctxMemberID  = "member_id"
	ctxOrgID     = "organization_id"
	ctxActor     = "actor"

	headerRequestID = "X-Request-ID"
)

// RequestID tags every request with an id and carries it into domain events
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ctxRequestID, requestID)
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Request = c.Request.WithContext(event.ContextWithCorrelationID(c.Request.Context(), requestID))
		c.Next()
	}
}

// RequestLogger logs one line per request
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if memberID := c.GetString(ctxMemberID); memberID != "" {
			fields = append(fields, zap.String("member_id", memberID))
		}

		switch {
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		default:
			logger.Info("Request", fields...)
		}
	}
}

// JWTAuth verifies the bearer token and stores its uid/org claims
func JWTAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "authorization is required",
			})
			return
		}

		claims, err := ParseToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid or expired token",
			})
			return
		}

		c.Set(ctxMemberID, claims.MemberID)
		c.Set(ctxOrgID, claims.OrganizationID)
		c.Next()
	}
}

// ResolveActor turns the token identity into an Actor once per request
func ResolveActor(identity service.IdentityService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := identity.ResolveActor(c.Request.Context(), c.GetString(ctxOrgID), c.GetString(ctxMemberID))
		if err != nil {
			abortWithError(c, logger, err)
			return
		}
		c.Set(ctxActor, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) access.Actor {
	if v, ok := c.Get(ctxActor); ok {
		if actor, ok := v.(access.Actor); ok {
			return actor
		}
	}
	return access.Actor{}
}
