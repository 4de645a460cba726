package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/utils"
	"github.com/smarttransit/booking-engine/pkg/jwt"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   models.Role `json:"role"`
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}

// AuthMiddleware validates the bearer token and stores the caller in the context
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithFields(logrus.Fields{
			"path": c.Request.URL.Path,
			"ip":   c.ClientIP(),
		})

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Auth failed: missing authorization header")
			abortUnauthorized(c, "unauthorized", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			log.Warn("Auth failed: malformed authorization header")
			abortUnauthorized(c, "unauthorized", "Invalid authorization header format. Expected: Bearer <token>")
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if jwt.IsExpired(err) {
				log.WithError(err).Info("Auth failed: token expired")
				abortUnauthorized(c, "token_expired", "Access token has expired")
				return
			}
			log.WithError(err).Warn("Auth failed: invalid token")
			abortUnauthorized(c, "invalid_token", "Invalid access token")
			return
		}

		role := models.Role(claims.Role)
		if !role.Valid() {
			log.WithField("role", claims.Role).Warn("Auth failed: unknown role")
			abortUnauthorized(c, "invalid_token", "Token carries an unknown role")
			return
		}

		c.Set(UserContextKey, UserContext{UserID: claims.UserID, Role: role})
		c.Next()
	}
}

// RequireAction rejects callers the authorization policy denies for action.
// Ownership-dependent checks happen again in the service with the loaded resource.
func RequireAction(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			abortUnauthorized(c, "unauthorized", "User context not found")
			return
		}

		if err := authz.Authorize(actor, action, authz.Resource{}); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "You don't have permission to access this resource",
			})
			return
		}

		c.Next()
	}
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}

	userCtx, ok := value.(UserContext)
	return userCtx, ok
}

// ActorFromContext builds the acting user with request metadata for auditing
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	userCtx, ok := GetUserContext(c)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{
		UserID:    userCtx.UserID,
		Role:      userCtx.Role,
		IPAddress: utils.ClientIP(c),
		UserAgent: utils.UserAgent(c),
	}, true
}
