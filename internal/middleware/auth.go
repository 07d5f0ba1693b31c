package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/logger"
	"canteen/internal/service"
)

const callerKey = "caller"

var errMissingToken = errors.New("missing token")

// AuthGuard requires a valid staff access token. When roles are given the
// token's role must be one of them.
func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := callerFromHeader(c.GetHeader("Authorization"), secret)
		if errors.Is(err, errMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing token"})
			return
		}
		if err != nil {
			logger.For("auth").WithError(err).Debug("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}

		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if caller.Role == r {
					match = true
					break
				}
			}
			if !match {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden", "code": service.CodeAccessDenied})
				return
			}
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a bearer token is present. A missing
// token continues anonymously; an invalid one is rejected.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := callerFromHeader(c.GetHeader("Authorization"), secret)
		if errors.Is(err, errMissingToken) {
			c.Next()
			return
		}
		if err != nil {
			logger.For("auth").WithError(err).Debug("optional token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller attached by AuthGuard or OptionalAuth.
func CallerFrom(c *gin.Context) (service.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return service.Caller{}, false
	}
	caller, ok := v.(service.Caller)
	return caller, ok
}

func callerFromHeader(header, secret string) (service.Caller, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return service.Caller{}, errMissingToken
	}
	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return service.Caller{}, errors.New("invalid token format")
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return service.Caller{}, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return service.Caller{}, errors.New("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return service.Caller{}, errors.New("invalid sub claim")
	}
	caller := service.Caller{UserID: userID}
	caller.Username, _ = claims["username"].(string)
	caller.Role, _ = claims["role"].(string)
	if tid, _ := claims["theaterId"].(string); tid != "" {
		theater, err := primitive.ObjectIDFromHex(tid)
		if err != nil {
			return service.Caller{}, errors.New("invalid theaterId claim")
		}
		caller.Theater = &theater
	}
	return caller, nil
}
