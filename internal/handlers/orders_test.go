package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/events"
	"canteen/internal/middleware"
	"canteen/internal/models"
	"canteen/internal/service"
	"canteen/internal/store/memory"
)

const orderTestSecret = "order-handler-secret"

type recordingInvalidator struct {
	mu     sync.Mutex
	groups []string
}

func (r *recordingInvalidator) invalidate(_ context.Context, groups ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, groups...)
}

func (r *recordingInvalidator) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.groups
	r.groups = nil
	return out
}

func sendJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrderWritesInvalidateCaches(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := memory.NewStore()
	settings := service.NewSettings(st.Settings)
	orders := service.NewOrders(st, settings, events.Noop{})
	rec := &recordingInvalidator{}
	inv := Invalidator(rec.invalidate)

	theater := primitive.NewObjectID()
	product := models.Product{
		ID:          primitive.NewObjectID(),
		Name:        "Popcorn",
		CategoryID:  primitive.NewObjectID(),
		Pricing:     models.ProductPricing{BasePrice: 100},
		Inventory:   models.ProductInventory{TrackStock: true, CurrentStock: 5},
		IsActive:    true,
		IsAvailable: true,
	}
	_, err := st.Products.Create(context.Background(), theater, product)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/orders/theater", middleware.OptionalAuth(orderTestSecret), PlaceOrder(st, orders, inv))
	r.PUT("/api/orders/:orderId/status", middleware.AuthGuard(orderTestSecret), UpdateOrderStatus(orders, inv))

	w := sendJSON(t, r, http.MethodPost, "/api/orders/theater", "", gin.H{
		"theaterId": theater.Hex(),
		"items":     []gin.H{{"productId": product.ID.Hex(), "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.ElementsMatch(t, []string{"menu", "reports"}, rec.take())

	var placed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))

	w = sendJSON(t, r, http.MethodPost, "/api/orders/theater", "", gin.H{
		"theaterId": theater.Hex(),
		"items":     []gin.H{{"productId": product.ID.Hex(), "quantity": 10}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.take())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       primitive.NewObjectID().Hex(),
		"username":  "manager",
		"role":      models.UserTypeTheaterAdmin,
		"theaterId": theater.Hex(),
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(orderTestSecret))
	require.NoError(t, err)

	w = sendJSON(t, r, http.MethodPut, "/api/orders/"+placed.Data.ID+"/status", token, gin.H{"status": "ready"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"reports"}, rec.take())

	w = sendJSON(t, r, http.MethodPut, "/api/orders/"+primitive.NewObjectID().Hex()+"/status", token, gin.H{"status": "ready"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, rec.take())
}
