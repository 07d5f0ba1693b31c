package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"canteen/internal/logger"
	"canteen/internal/models"
	"canteen/internal/store"
)

// AuthConfig carries the token settings shared by the auth handlers.
type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type LoginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (r LoginRequest) identifier() string {
	for _, v := range []string{r.Login, r.Email, r.Username} {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

func Login(st *store.Store, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		login := req.identifier()
		if login == "" {
			respondWithError(c, http.StatusBadRequest, route, "email or username is required")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		log := logger.For("auth")
		user, err := st.Users.FindByLogin(ctx, login)
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login rejected: unknown user")
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.WithField("user", user.Username).Info("login rejected: bad password")
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if !user.IsActive {
			respondWithError(c, http.StatusForbidden, route, "user is inactive")
			return
		}

		tokens, _, err := issueTokens(c, st, user, cfg)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.WithField("user", user.Username).Info("staff login succeeded")
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
			"user":         user,
		})
	}
}

func Refresh(st *store.Store, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/refresh"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		token, err := st.Tokens.FindActive(ctx, hashToken(strings.TrimSpace(req.RefreshToken)))
		if err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}
		if token.Expired(time.Now()) {
			_ = st.Tokens.Revoke(ctx, token.ID, nil)
			respondWithError(c, http.StatusUnauthorized, route, "refresh token expired")
			return
		}

		user, err := st.Users.FindByID(ctx, token.UserID)
		if err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "user not found")
			return
		}
		if !user.IsActive {
			respondWithError(c, http.StatusForbidden, route, "user is inactive")
			return
		}

		tokens, stored, err := issueTokens(c, st, user, cfg)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if err := st.Tokens.Revoke(ctx, token.ID, &stored.ID); err != nil {
			logger.For("auth").WithError(err).Warn("could not revoke rotated refresh token")
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresIn":    tokens.ExpiresIn,
		})
	}
}

func Logout(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/logout"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		revoked, err := st.Tokens.RevokeByHash(ctx, hashToken(strings.TrimSpace(req.RefreshToken)))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if !revoked {
			respondWithError(c, http.StatusUnauthorized, route, "invalid refresh token")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
	}
}

func Me(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/auth/me"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := st.Users.FindByID(ctx, caller.UserID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, user)
	}
}

func issueTokens(c *gin.Context, st *store.Store, user models.User, cfg AuthConfig) (AuthTokens, models.RefreshToken, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID.Hex(),
		"username": user.Username,
		"role":     user.UserType,
		"exp":      now.Add(cfg.AccessTTL).Unix(),
	}
	if user.Theater != nil {
		claims["theaterId"] = user.Theater.Hex()
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return AuthTokens{}, models.RefreshToken{}, err
	}

	plainRefresh := generateRefreshString()
	if plainRefresh == "" {
		return AuthTokens{}, models.RefreshToken{}, errors.New("could not generate refresh token")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	stored, err := st.Tokens.Insert(ctx, models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(plainRefresh),
		ExpiresAt: now.Add(cfg.RefreshTTL),
		UserAgent: c.GetHeader("User-Agent"),
		CreatedAt: now,
	})
	if err != nil {
		return AuthTokens{}, models.RefreshToken{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: plainRefresh,
		ExpiresIn:    int64(cfg.AccessTTL.Seconds()),
	}, stored, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRefreshString() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
