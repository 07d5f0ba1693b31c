package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/middleware"
	"canteen/internal/models"
	"canteen/internal/service"
	"canteen/internal/store"
)

type QRNameCreateRequest struct {
	TheaterID   string `json:"theaterId"`
	QRName      string `json:"qrName" binding:"required"`
	SeatClass   string `json:"seatClass" binding:"required"`
	Description string `json:"description"`
}

type QRNameUpdateRequest struct {
	TheaterID   string  `json:"theaterId"`
	QRName      *string `json:"qrName"`
	SeatClass   *string `json:"seatClass"`
	Description *string `json:"description"`
}

// requestedTheater resolves the theater of a QR name route from an explicit
// id or, when none was sent, from the caller's token.
func requestedTheater(c *gin.Context, route, requested string) (primitive.ObjectID, bool) {
	requested = strings.TrimSpace(requested)
	caller, authed := middleware.CallerFrom(c)
	if requested == "" {
		if !authed {
			respondServiceError(c, route, &service.BusinessError{Code: service.CodeTheaterIDRequired, Message: "theaterId is required", Status: http.StatusBadRequest})
			return primitive.NilObjectID, false
		}
		theater, err := caller.ResolveTheater("")
		if err != nil {
			respondServiceError(c, route, err)
			return theater, false
		}
		return theater, true
	}

	theater, err := primitive.ObjectIDFromHex(requested)
	if err != nil {
		respondServiceError(c, route, &service.BusinessError{Code: service.CodeTheaterIDRequired, Message: "theaterId is invalid", Status: http.StatusBadRequest})
		return theater, false
	}
	if authed {
		if err := caller.RequireTheater(theater); err != nil {
			respondServiceError(c, route, err)
			return theater, false
		}
	}
	return theater, true
}

// ListQRNames is public so the customer menu can label seats.
func ListQRNames(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/qrcodenames"
		defer handlePanic(c, route)

		theater, ok := requestedTheater(c, route, c.Query("theaterId"))
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		container, err := st.QRNames.Load(ctx, theater)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []models.QRName{}, "metadata": models.Metadata{}})
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		items := container.Active()
		if includeInactive(c) {
			if _, ok := middleware.CallerFrom(c); ok {
				items = container.Items
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "metadata": container.Metadata})
	}
}

func CreateQRName(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/qrcodenames"
		defer handlePanic(c, route)

		if _, ok := requireCaller(c, route); !ok {
			return
		}

		var req QRNameCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		theater, ok := requestedTheater(c, route, req.TheaterID)
		if !ok {
			return
		}

		name := strings.TrimSpace(req.QRName)
		seat := strings.TrimSpace(req.SeatClass)
		if name == "" || seat == "" {
			respondWithError(c, http.StatusBadRequest, route, "qrName and seatClass are required")
			return
		}
		if duplicateQRName(c, route, st, theater, name, seat, primitive.NilObjectID) {
			return
		}

		now := time.Now()
		createEntry(c, route, st.QRNames, theater, models.QRName{
			ID:          primitive.NewObjectID(),
			QRName:      name,
			SeatClass:   seat,
			Description: strings.TrimSpace(req.Description),
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
}

func UpdateQRName(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/qrcodenames/:id"
		defer handlePanic(c, route)

		if _, ok := requireCaller(c, route); !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req QRNameUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		requested := req.TheaterID
		if requested == "" {
			requested = c.Query("theaterId")
		}
		theater, ok := requestedTheater(c, route, requested)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		current, err := st.QRNames.Get(ctx, theater, id)
		cancel()
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		update := map[string]any{}
		name, seat := current.QRName, current.SeatClass
		if req.QRName != nil {
			name = strings.TrimSpace(*req.QRName)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "qrName cannot be empty")
				return
			}
			update["qrName"] = name
		}
		if req.SeatClass != nil {
			seat = strings.TrimSpace(*req.SeatClass)
			if seat == "" {
				respondWithError(c, http.StatusBadRequest, route, "seatClass cannot be empty")
				return
			}
			update["seatClass"] = seat
		}
		if req.QRName != nil || req.SeatClass != nil {
			if duplicateQRName(c, route, st, theater, name, seat, id) {
				return
			}
		}
		if req.Description != nil {
			update["description"] = strings.TrimSpace(*req.Description)
		}
		updateEntry(c, route, st.QRNames, theater, id, update)
	}
}

func DeleteQRName(st *store.Store) gin.HandlerFunc {
	return qrNameActive(st, "DELETE /api/qrcodenames/:id", false)
}

func RestoreQRName(st *store.Store) gin.HandlerFunc {
	return qrNameActive(st, "PUT /api/qrcodenames/:id/restore", true)
}

func qrNameActive(st *store.Store, route string, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		if _, ok := requireCaller(c, route); !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}
		theater, ok := requestedTheater(c, route, c.Query("theaterId"))
		if !ok {
			return
		}
		if active {
			ctx, cancel := requestContext(c)
			current, err := st.QRNames.Get(ctx, theater, id)
			cancel()
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			if current.IsActive {
				respondServiceError(c, route, store.ErrAlreadyActive)
				return
			}
			if duplicateQRName(c, route, st, theater, current.QRName, current.SeatClass, id) {
				return
			}
		}
		toggleEntry(c, route, st.QRNames, theater, id, active)
	}
}

// duplicateQRName enforces one active qrName per seat class in a theater.
func duplicateQRName(c *gin.Context, route string, st *store.Store, theater primitive.ObjectID, name, seat string, exclude primitive.ObjectID) bool {
	ctx, cancel := requestContext(c)
	defer cancel()

	exists, err := st.QRNames.Exists(ctx, theater, map[string]any{"qrName": name, "seatClass": seat, "isActive": true}, exclude)
	if err != nil {
		respondServiceError(c, route, err)
		return true
	}
	if exists {
		respondServiceError(c, route, &service.BusinessError{
			Code:    service.CodeDuplicateQRCodeName,
			Message: "a QR code name with this seat class already exists",
			Status:  http.StatusBadRequest,
		})
		return true
	}
	return false
}
