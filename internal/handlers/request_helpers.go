package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/logger"
	"canteen/internal/middleware"
	"canteen/internal/service"
	"canteen/internal/store"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		logger.For("http").WithField("route", route).Errorf("panic recovered: %v", r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, st *store.Store) error {
	if st.Ping == nil {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return st.Ping(checkCtx)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	logger.For("http").WithField("route", route).Warnf("returning error %d: %s", status, message)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// respondServiceError maps business, store and unexpected errors onto the
// response shapes clients rely on.
func respondServiceError(c *gin.Context, route string, err error) {
	if be, ok := service.AsBusiness(err); ok {
		body := gin.H{"success": false, "error": be.Message, "code": be.Code}
		for k, v := range be.Details {
			body[k] = v
		}
		logger.For("http").WithField("route", route).Infof("business rule rejected request: %s", be.Code)
		c.AbortWithStatusJSON(be.Status, body)
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "not found")
	case errors.Is(err, store.ErrAlreadyInactive):
		respondWithError(c, http.StatusBadRequest, route, "already inactive")
	case errors.Is(err, store.ErrAlreadyActive):
		respondWithError(c, http.StatusBadRequest, route, "already active")
	case errors.Is(err, store.ErrDuplicate):
		respondWithError(c, http.StatusConflict, route, "already exists")
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(c, http.StatusServiceUnavailable, route, "database timeout")
	default:
		logger.For("http").WithField("route", route).WithError(err).Error("unexpected error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]gin.H, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			var msg string
			switch fieldError.Tag() {
			case "required":
				msg = fmt.Sprintf("%s is required", field)
			case "min", "gte", "gt":
				msg = fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
			case "max", "lte", "lt":
				msg = fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
			case "oneof":
				msg = fmt.Sprintf("%s must be one of %s", field, fieldError.Param())
			default:
				msg = fmt.Sprintf("%s is invalid", field)
			}
			details = append(details, gin.H{"field": field, "message": msg})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Validation failed",
		"details": []gin.H{{"field": "body", "message": err.Error()}},
	})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func objectIDParam(c *gin.Context, route, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(name)))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// requireCaller returns the authenticated caller or aborts with 401.
func requireCaller(c *gin.Context, route string) (service.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return caller, false
	}
	return caller, true
}

// theaterScope parses :theaterId and checks the caller may act on it.
func theaterScope(c *gin.Context, route string) (primitive.ObjectID, service.Caller, bool) {
	caller, ok := requireCaller(c, route)
	if !ok {
		return primitive.NilObjectID, caller, false
	}
	theater, ok := objectIDParam(c, route, "theaterId")
	if !ok {
		return theater, caller, false
	}
	if err := caller.RequireTheater(theater); err != nil {
		respondServiceError(c, route, err)
		return theater, caller, false
	}
	return theater, caller, true
}

func includeInactive(c *gin.Context) bool {
	v := strings.ToLower(strings.TrimSpace(c.Query("includeInactive")))
	return v == "true" || v == "1"
}
