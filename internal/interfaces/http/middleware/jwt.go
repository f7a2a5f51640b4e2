package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/infrastructure/auth"
	"github.com/fablab/backend/internal/interfaces/http/dto"
)

const (
	contextKeyClaims    = "auth_claims"
	contextKeyProfileID = "profile_id"
	contextKeyRole      = "profile_role"
)

// JWT validates the Authorization bearer token and stores the verified
// claims on the request context. Requests without a valid token are
// rejected before reaching the handler.
func JWT(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractBearerToken(c)
		if !ok {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			abortUnauthorized(c, authErrorMessage(err))
			return
		}

		c.Set(contextKeyClaims, claims)
		c.Set(contextKeyProfileID, claims.ProfileID)
		c.Set(contextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireRole allows the request through only when the authenticated
// profile holds one of the given roles. It must run after JWT.
func RequireRole(roles ...member.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		requestID := c.GetString(RequestIDHeader)
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "insufficient privileges", requestID))
	}
}

// GetClaims returns the verified token claims stored by JWT.
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(contextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// GetProfileID returns the authenticated profile id.
func GetProfileID(c *gin.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := claims.ProfileUUID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetRole returns the authenticated profile role.
func GetRole(c *gin.Context) (member.Role, bool) {
	value, exists := c.Get(contextKeyRole)
	if !exists {
		return "", false
	}
	role, ok := value.(member.Role)
	return role, ok
}

func extractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "token is not yet valid"
	default:
		return "invalid token"
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	requestID := c.GetString(RequestIDHeader)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, requestID))
}
