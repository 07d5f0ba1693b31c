package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/logger"
	"canteen/internal/service"
)

const (
	logoFetchTimeout = 10 * time.Second
	maxLogoSize      = 5 << 20
)

func GetGeneralSettings(settings *service.Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/settings/general"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		cfg, err := settings.General(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, cfg)
	}
}

// UpdateGeneralSettings merges only the keys present in the body. Unknown
// keys are rejected.
func UpdateGeneralSettings(settings *service.Settings, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/settings/general"
		defer handlePanic(c, route)

		patch, err := service.DecodeGeneralPatch(c.Request.Body)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		updated, err := settings.UpdateGeneral(ctx, patch)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		logger.For("settings").Info("general settings updated")
		inv.drop(c, "settings")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Settings saved", "data": updated})
	}
}

// LogoProxy streams the configured logo so browsers can use it as a favicon
// without CORS errors.
func LogoProxy(settings *service.Settings, client *http.Client) gin.HandlerFunc {
	if client == nil {
		client = &http.Client{Timeout: logoFetchTimeout}
	}
	return func(c *gin.Context) {
		const route = "GET /api/settings/image/logo"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), logoFetchTimeout)
		defer cancel()

		cfg, err := settings.General(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if cfg.LogoURL == "" {
			respondWithError(c, http.StatusNotFound, route, "no logo configured")
			return
		}

		body, contentType, err := fetchLogo(ctx, client, cfg.LogoURL)
		if err != nil {
			logger.For("settings").WithError(err).Warn("logo fetch failed")
			respondWithError(c, http.StatusBadGateway, route, "failed to fetch logo")
			return
		}

		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Cache-Control", "public, max-age=3600")
		c.Data(http.StatusOK, contentType, body)
	}
}

func fetchLogo(ctx context.Context, client *http.Client, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > maxLogoSize {
		return nil, "", fmt.Errorf("logo exceeds %d bytes", maxLogoSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}
