package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newAuthRouter(guard gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/whoami", guard, func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		theater := ""
		if caller.Theater != nil {
			theater = caller.Theater.Hex()
		}
		c.JSON(http.StatusOK, gin.H{"role": caller.Role, "theater": theater, "username": caller.Username})
	})
	return r
}

func whoami(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthGuard(t *testing.T) {
	theater := primitive.NewObjectID()
	valid := signToken(t, testSecret, jwt.MapClaims{
		"sub":       primitive.NewObjectID().Hex(),
		"username":  "manager",
		"role":      models.UserTypeTheaterAdmin,
		"theaterId": theater.Hex(),
	})

	r := newAuthRouter(AuthGuard(testSecret))

	w := whoami(r, valid)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), theater.Hex())
	assert.Contains(t, w.Body.String(), `"username":"manager"`)

	w = whoami(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing token")

	w = whoami(r, signToken(t, "other-secret", jwt.MapClaims{"sub": primitive.NewObjectID().Hex()}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := signToken(t, testSecret, jwt.MapClaims{
		"sub": primitive.NewObjectID().Hex(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	w = whoami(r, expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = whoami(r, signToken(t, testSecret, jwt.MapClaims{"sub": "not-an-id"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthGuardRoles(t *testing.T) {
	r := newAuthRouter(AuthGuard(testSecret, models.UserTypeSuperAdmin))
	staff := signToken(t, testSecret, jwt.MapClaims{
		"sub":  primitive.NewObjectID().Hex(),
		"role": models.UserTypeTheaterUser,
	})
	w := whoami(r, staff)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ACCESS_DENIED")

	admin := signToken(t, testSecret, jwt.MapClaims{
		"sub":  primitive.NewObjectID().Hex(),
		"role": models.UserTypeSuperAdmin,
	})
	assert.Equal(t, http.StatusOK, whoami(r, admin).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newAuthRouter(OptionalAuth(testSecret))

	w := whoami(r, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  primitive.NewObjectID().Hex(),
		"role": models.UserTypeTheaterUser,
	})
	w = whoami(r, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.UserTypeTheaterUser)

	w = whoami(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDEchoesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestId")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}
