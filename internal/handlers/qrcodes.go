package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/service"
	"canteen/internal/store"
)

const (
	minQRSize     = 128
	maxQRSize     = 1024
	defaultQRSize = 256
)

// menuURL is the customer menu link a table QR code points at.
func menuURL(frontend string, theater primitive.ObjectID, qrName, seat string) string {
	q := url.Values{}
	q.Set("qrName", qrName)
	q.Set("seat", seat)
	return fmt.Sprintf("%s/menu/%s?%s", strings.TrimRight(frontend, "/"), theater.Hex(), q.Encode())
}

func qrSize(raw string) int {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultQRSize
	}
	if size < minQRSize {
		return minQRSize
	}
	if size > maxQRSize {
		return maxQRSize
	}
	return size
}

// QRCodeImage renders the PNG for one QR name. The frontend URL stored in
// settings wins over the configured default.
func QRCodeImage(st *store.Store, settings *service.Settings, defaultFrontend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/qrcodes/:theaterId/:qrNameId"
		defer handlePanic(c, route)

		theater, ok := objectIDParam(c, route, "theaterId")
		if !ok {
			return
		}
		qrID, err := primitive.ObjectIDFromHex(strings.TrimSuffix(c.Param("qrNameId"), ".png"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid qrNameId")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		qr, err := st.QRNames.Get(ctx, theater, qrID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		if !qr.IsActive {
			respondWithError(c, http.StatusNotFound, route, "qr code name is inactive")
			return
		}

		frontend := defaultFrontend
		if cfg, err := settings.General(ctx); err == nil && cfg.FrontendURL != "" {
			frontend = cfg.FrontendURL
		}

		png, err := qrcode.Encode(menuURL(frontend, theater, qr.QRName, qr.SeatClass), qrcode.Medium, qrSize(c.Query("size")))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.Header("Cache-Control", "public, max-age=3600")
		c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s-%s.png"`, qr.QRName, qr.SeatClass))
		c.Data(http.StatusOK, "image/png", png)
	}
}
