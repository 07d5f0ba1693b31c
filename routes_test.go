package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"canteen/internal/config"
	"canteen/internal/events"
	"canteen/internal/models"
	"canteen/internal/store"
	"canteen/internal/store/memory"
)

type testServer struct {
	router  *gin.Engine
	st      *store.Store
	theater primitive.ObjectID
	token   string
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := memory.NewStore()
	env := config.Config{
		JWTSecret:       "route-test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		FrontendURL:     "https://menu.example.com",
		UploadDir:       t.TempDir(),
	}
	ts := &testServer{
		router:  newRouter(routerDeps{store: st, publisher: events.Noop{}, env: env}),
		st:      st,
		theater: primitive.NewObjectID(),
	}

	theater := ts.theater
	ts.token = ts.login(t, models.User{
		Email:    "manager@example.com",
		Username: "manager",
		UserType: models.UserTypeTheaterAdmin,
		Theater:  &theater,
	})
	return ts
}

// login stores u with the password "s3cret" and returns its access token.
func (ts *testServer) login(t *testing.T, u models.User) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	u.PasswordHash = string(hash)
	u.IsActive = true
	_, err = ts.st.Users.Create(context.Background(), u)
	require.NoError(t, err)

	saved := ts.token
	ts.token = ""
	defer func() { ts.token = saved }()
	w := ts.do(t, http.MethodPost, "/api/auth/login", gin.H{"login": u.Username, "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) seedProduct(t *testing.T, name string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{
		ID:          primitive.NewObjectID(),
		Name:        name,
		CategoryID:  primitive.NewObjectID(),
		Pricing:     models.ProductPricing{BasePrice: price},
		Inventory:   models.ProductInventory{TrackStock: true, CurrentStock: stock},
		IsActive:    true,
		IsAvailable: true,
	}
	_, err := ts.st.Products.Create(context.Background(), ts.theater, p)
	require.NoError(t, err)
	return p
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""
	w := ts.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "manager@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "manager@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", decode(t, w)["error"])
}

func TestPlaceAndManageOrder(t *testing.T) {
	ts := newTestServer(t)
	popcorn := ts.seedProduct(t, "Popcorn", 100, 10)
	cola := ts.seedProduct(t, "Cola", 50, 10)

	anonymous := ts.token
	ts.token = ""
	w := ts.do(t, http.MethodPost, "/api/orders/theater", gin.H{
		"theaterId": ts.theater.Hex(),
		"items": []gin.H{
			{"productId": popcorn.ID.Hex(), "quantity": 2},
			{"productId": cola.ID.Hex(), "quantity": 1},
		},
		"qrName": "Screen 1",
		"seat":   "A4",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	pricing := data["pricing"].(map[string]any)
	assert.Equal(t, 250.0, pricing["subtotal"])
	assert.Equal(t, 45.0, pricing["taxAmount"])
	assert.Equal(t, 295.0, pricing["total"])
	assert.Nil(t, data["staffInfo"])
	orderID := data["id"].(string)

	w = ts.do(t, http.MethodGet, "/api/orders/theater/"+ts.theater.Hex(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts.token = anonymous
	w = ts.do(t, http.MethodGet, "/api/orders/theater/"+ts.theater.Hex()+"?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Len(t, list["data"], 1)
	assert.Equal(t, 1.0, list["pagination"].(map[string]any)["total"])

	w = ts.do(t, http.MethodGet, "/api/orders/theater/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ACCESS_DENIED", decode(t, w)["code"])

	w = ts.do(t, http.MethodPut, "/api/orders/"+orderID+"/status", gin.H{"status": "ready"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPut, "/api/orders/"+primitive.NewObjectID().Hex()+"/status", gin.H{"status": "ready"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", decode(t, w)["code"])
}

func TestPlaceOrderValidationShape(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	w := ts.do(t, http.MethodPost, "/api/orders/theater", gin.H{"theaterId": ts.theater.Hex()})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].([]any)
	require.NotEmpty(t, details)
	assert.Equal(t, "items", details[0].(map[string]any)["field"])

	product := ts.seedProduct(t, "Nachos", 120, 1)
	w = ts.do(t, http.MethodPost, "/api/orders/theater", gin.H{
		"theaterId": ts.theater.Hex(),
		"items":     []gin.H{{"productId": product.ID.Hex(), "quantity": 3}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode(t, w)["code"])
}

func TestDefaultRoleRejectsRename(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/roles/" + ts.theater.Hex()

	w := ts.do(t, http.MethodPost, base+"/default", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	role := decode(t, w)["data"].(map[string]any)
	roleID := role["id"].(string)

	w = ts.do(t, http.MethodPost, base+"/default", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPut, base+"/"+roleID, gin.H{"name": "Boss", "permissions": []gin.H{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "DEFAULT_ROLE_PROTECTED", body["code"])
	assert.Equal(t, []any{"name"}, body["blockedFields"])

	w = ts.do(t, http.MethodPut, base+"/"+roleID, gin.H{"permissions": []gin.H{{"page": "orders", "hasAccess": true}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodDelete, base+"/"+roleID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQRNameDuplicates(t *testing.T) {
	ts := newTestServer(t)
	payload := gin.H{"qrName": "Screen 1", "seatClass": "Gold"}

	w := ts.do(t, http.MethodPost, "/api/qrcodenames", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["data"].(map[string]any)

	w = ts.do(t, http.MethodPost, "/api/qrcodenames", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DUPLICATE_QR_CODE_NAME", decode(t, w)["code"])

	w = ts.do(t, http.MethodPost, "/api/qrcodenames", gin.H{"qrName": "Screen 1", "seatClass": "Silver"})
	assert.Equal(t, http.StatusCreated, w.Code)

	ts.token = ""
	w = ts.do(t, http.MethodGet, "/api/qrcodenames?theaterId="+ts.theater.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 2)

	w = ts.do(t, http.MethodGet, "/api/qrcodes/"+ts.theater.Hex()+"/"+created["id"].(string)+".png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestQRNameRestoreRejectsDuplicate(t *testing.T) {
	ts := newTestServer(t)
	payload := gin.H{"qrName": "Screen 2", "seatClass": "Gold"}

	w := ts.do(t, http.MethodPost, "/api/qrcodenames", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)["data"].(map[string]any)["id"].(string)

	w = ts.do(t, http.MethodDelete, "/api/qrcodenames/"+first, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/qrcodenames", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPut, "/api/qrcodenames/"+first+"/restore", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DUPLICATE_QR_CODE_NAME", decode(t, w)["code"])

	w = ts.do(t, http.MethodPut, "/api/qrcodenames/"+first, gin.H{"isActive": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/qrcodenames", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)
}

func TestUpdateCannotToggleActive(t *testing.T) {
	ts := newTestServer(t)
	base := "/api/theater-categories/" + ts.theater.Hex()

	w := ts.do(t, http.MethodPost, base, gin.H{"categoryName": "Snacks"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["data"].(map[string]any)["id"].(string)

	w = ts.do(t, http.MethodPut, base+"/"+id, gin.H{"isActive": false})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no fields to update", decode(t, w)["error"])

	w = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].(map[string]any)["isActive"])
}

func TestGeneralSettingsRoutes(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/settings/general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Asia/Kolkata", decode(t, w)["data"].(map[string]any)["timezone"])

	w = ts.do(t, http.MethodPost, "/api/settings/general", gin.H{"taxRate": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)

	ts.token = ts.login(t, models.User{Email: "root@example.com", Username: "root", UserType: models.UserTypeSuperAdmin})
	w = ts.do(t, http.MethodPost, "/api/settings/general", gin.H{"taxRate": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/settings/general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5.0, decode(t, w)["data"].(map[string]any)["taxRate"])

	w = ts.do(t, http.MethodGet, "/api/settings/image/logo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
