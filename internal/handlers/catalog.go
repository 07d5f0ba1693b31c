package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/store"
)

type CategoryCreateRequest struct {
	CategoryName string `json:"categoryName" binding:"required"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	SortOrder    int    `json:"sortOrder"`
	IsActive     *bool  `json:"isActive"`
}

type CategoryUpdateRequest struct {
	CategoryName *string `json:"categoryName"`
	Description  *string `json:"description"`
	ImageURL     *string `json:"imageUrl"`
	SortOrder    *int    `json:"sortOrder"`
}

type ProductTypeCreateRequest struct {
	ProductType string `json:"productType" binding:"required"`
	ProductCode string `json:"productCode"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

type ProductTypeUpdateRequest struct {
	ProductType *string `json:"productType"`
	ProductCode *string `json:"productCode"`
	Description *string `json:"description"`
}

func ListCategories(st *store.Store) gin.HandlerFunc {
	return listEntries(st.Categories, "GET /api/theater-categories/:theaterId")
}

// CreateCategory rejects a name already used by an active category of the
// theater.
func CreateCategory(st *store.Store, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/theater-categories/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		var req CategoryCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		name := strings.TrimSpace(req.CategoryName)
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "categoryName required")
			return
		}
		if duplicateName(c, route, st.Categories, theater, "categoryName", name, primitive.NilObjectID) {
			return
		}

		now := time.Now()
		category := models.Category{
			ID:           primitive.NewObjectID(),
			CategoryName: name,
			Description:  strings.TrimSpace(req.Description),
			ImageURL:     strings.TrimSpace(req.ImageURL),
			SortOrder:    req.SortOrder,
			IsActive:     req.IsActive == nil || *req.IsActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if createEntry(c, route, st.Categories, theater, category) {
			inv.drop(c, "menu")
		}
	}
}

func UpdateCategory(st *store.Store, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/theater-categories/:theaterId/:id"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req CategoryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		update := map[string]any{}
		if req.CategoryName != nil {
			name := strings.TrimSpace(*req.CategoryName)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "categoryName cannot be empty")
				return
			}
			if duplicateName(c, route, st.Categories, theater, "categoryName", name, id) {
				return
			}
			update["categoryName"] = name
		}
		if req.Description != nil {
			update["description"] = strings.TrimSpace(*req.Description)
		}
		if req.ImageURL != nil {
			update["imageUrl"] = strings.TrimSpace(*req.ImageURL)
		}
		if req.SortOrder != nil {
			update["sortOrder"] = *req.SortOrder
		}
		if updateEntry(c, route, st.Categories, theater, id, update) {
			inv.drop(c, "menu")
		}
	}
}

func DeleteCategory(st *store.Store, inv Invalidator) gin.HandlerFunc {
	return setEntryActive(st.Categories, "DELETE /api/theater-categories/:theaterId/:id", "id", false, inv, "menu")
}

func RestoreCategory(st *store.Store, inv Invalidator) gin.HandlerFunc {
	return setEntryActive(st.Categories, "PUT /api/theater-categories/:theaterId/:id/restore", "id", true, inv, "menu")
}

func ListProductTypes(st *store.Store) gin.HandlerFunc {
	return listEntries(st.ProductTypes, "GET /api/theater-product-types/:theaterId")
}

func CreateProductType(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/theater-product-types/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		var req ProductTypeCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		name := strings.TrimSpace(req.ProductType)
		if name == "" {
			respondWithError(c, http.StatusBadRequest, route, "productType required")
			return
		}
		if duplicateName(c, route, st.ProductTypes, theater, "productType", name, primitive.NilObjectID) {
			return
		}

		now := time.Now()
		createEntry(c, route, st.ProductTypes, theater, models.ProductType{
			ID:          primitive.NewObjectID(),
			ProductType: name,
			ProductCode: strings.TrimSpace(req.ProductCode),
			Description: strings.TrimSpace(req.Description),
			IsActive:    req.IsActive == nil || *req.IsActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
}

func UpdateProductType(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/theater-product-types/:theaterId/:id"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req ProductTypeUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		update := map[string]any{}
		if req.ProductType != nil {
			name := strings.TrimSpace(*req.ProductType)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "productType cannot be empty")
				return
			}
			if duplicateName(c, route, st.ProductTypes, theater, "productType", name, id) {
				return
			}
			update["productType"] = name
		}
		if req.ProductCode != nil {
			update["productCode"] = strings.TrimSpace(*req.ProductCode)
		}
		if req.Description != nil {
			update["description"] = strings.TrimSpace(*req.Description)
		}
		updateEntry(c, route, st.ProductTypes, theater, id, update)
	}
}

func DeleteProductType(st *store.Store) gin.HandlerFunc {
	return setEntryActive(st.ProductTypes, "DELETE /api/theater-product-types/:theaterId/:id", "id", false, nil)
}

func RestoreProductType(st *store.Store) gin.HandlerFunc {
	return setEntryActive(st.ProductTypes, "PUT /api/theater-product-types/:theaterId/:id/restore", "id", true, nil)
}

// duplicateName responds 409 when another active item already uses name.
func duplicateName[T models.Entry](c *gin.Context, route string, repo store.Containers[T], theater primitive.ObjectID, field, name string, exclude primitive.ObjectID) bool {
	ctx, cancel := requestContext(c)
	defer cancel()

	exists, err := repo.Exists(ctx, theater, map[string]any{field: name, "isActive": true}, exclude)
	if err != nil {
		respondServiceError(c, route, err)
		return true
	}
	if exists {
		respondWithError(c, http.StatusConflict, route, field+" already exists")
		return true
	}
	return false
}
