package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/logger"
	"canteen/internal/models"
	"canteen/internal/store"
)

/* =======================
   REQUEST MODELS
======================= */

// productInput is shared by the JSON and multipart variants. Nil fields were
// not sent.
type productInput struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	ProductCode   *string  `json:"productCode"`
	CategoryID    *string  `json:"categoryId"`
	ProductTypeID *string  `json:"productTypeId"`
	BasePrice     *float64 `json:"basePrice"`
	SalePrice     *float64 `json:"salePrice"`
	SaleEnabled   *bool    `json:"saleEnabled"`
	CurrentStock  *int     `json:"currentStock"`
	MinStock      *int     `json:"minStock"`
	TrackStock    *bool    `json:"trackStock"`
	Unit          *string  `json:"unit"`
	IsActive      *bool    `json:"isActive"`
	IsAvailable   *bool    `json:"isAvailable"`

	ImagePath string `json:"-"`
}

type stockUpdateRequest struct {
	CurrentStock *int `json:"currentStock" binding:"required"`
}

func bindProductInput(c *gin.Context, images ImageStore) (productInput, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return parseMultipartProductRequest(c, images)
	}
	var input productInput
	err := c.ShouldBindJSON(&input)
	return input, err
}

func derivedProducts(items []models.Product) []models.Product {
	out := make([]models.Product, 0, len(items))
	for _, p := range items {
		out = append(out, p.WithDerived())
	}
	return out
}

/* =======================
   HANDLERS
======================= */

func ListProducts(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/theater-products/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		container, err := st.Products.Load(ctx, theater)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []models.Product{}, "metadata": models.Metadata{}})
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		items := container.Items
		if !includeInactive(c) {
			items = container.Active()
		}
		if categoryID := strings.TrimSpace(c.Query("categoryId")); categoryID != "" {
			filtered := make([]models.Product, 0, len(items))
			for _, p := range items {
				if p.CategoryID.Hex() == categoryID {
					filtered = append(filtered, p)
				}
			}
			items = filtered
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": derivedProducts(items), "metadata": container.Metadata})
	}
}

func CreateProduct(st *store.Store, images ImageStore, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/theater-products/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		input, err := bindProductInput(c, images)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		discardImage := func() {
			if input.ImagePath != "" {
				_ = images.Delete(input.ImagePath)
			}
		}

		if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
			discardImage()
			respondWithError(c, http.StatusBadRequest, route, "name required")
			return
		}
		if input.BasePrice == nil {
			discardImage()
			respondWithError(c, http.StatusBadRequest, route, "basePrice required")
			return
		}
		pricing, err := resolveSaleUpdate(models.ProductPricing{}, saleUpdateInput{
			BasePrice:   input.BasePrice,
			SaleEnabled: input.SaleEnabled,
			SalePrice:   input.SalePrice,
		})
		if err != nil {
			discardImage()
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		categoryID, productTypeID, ok := resolveProductRefs(c, route, st, theater, input)
		if !ok {
			discardImage()
			return
		}
		if categoryID.IsZero() {
			discardImage()
			respondWithError(c, http.StatusBadRequest, route, "categoryId required")
			return
		}

		now := time.Now()
		product := models.Product{
			ID:            primitive.NewObjectID(),
			Name:          strings.TrimSpace(*input.Name),
			CategoryID:    categoryID,
			ProductTypeID: productTypeID,
			Pricing:       pricing,
			ImagePath:     input.ImagePath,
			IsActive:      input.IsActive == nil || *input.IsActive,
			IsAvailable:   input.IsAvailable == nil || *input.IsAvailable,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if input.Description != nil {
			product.Description = *input.Description
		}
		if input.ProductCode != nil {
			product.ProductCode = *input.ProductCode
		}
		product.Inventory = models.ProductInventory{TrackStock: true}
		if input.TrackStock != nil {
			product.Inventory.TrackStock = *input.TrackStock
		}
		if input.CurrentStock != nil {
			if *input.CurrentStock < 0 {
				discardImage()
				respondWithError(c, http.StatusBadRequest, route, "currentStock cannot be negative")
				return
			}
			product.Inventory.CurrentStock = *input.CurrentStock
		}
		if input.MinStock != nil {
			product.Inventory.MinStock = *input.MinStock
		}
		if input.Unit != nil {
			product.Inventory.Unit = *input.Unit
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		container, err := st.Products.Create(ctx, theater, product)
		if err != nil {
			discardImage()
			respondServiceError(c, route, err)
			return
		}

		logger.For("catalog").WithField("theater", theater.Hex()).WithField("product", product.Name).Info("product created")
		inv.drop(c, "menu")
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": product.WithDerived(), "metadata": container.Metadata})
	}
}

func UpdateProduct(st *store.Store, images ImageStore, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/theater-products/:theaterId/:productId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		productID, ok := objectIDParam(c, route, "productId")
		if !ok {
			return
		}

		input, err := bindProductInput(c, images)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		discardImage := func() {
			if input.ImagePath != "" {
				_ = images.Delete(input.ImagePath)
			}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		existing, err := st.Products.Get(ctx, theater, productID)
		if err != nil {
			discardImage()
			respondServiceError(c, route, err)
			return
		}

		update := map[string]any{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				discardImage()
				respondWithError(c, http.StatusBadRequest, route, "name cannot be empty")
				return
			}
			update["name"] = name
		}
		if input.Description != nil {
			update["description"] = *input.Description
		}
		if input.ProductCode != nil {
			update["productCode"] = *input.ProductCode
		}

		if input.BasePrice != nil || input.SaleEnabled != nil || input.SalePrice != nil {
			pricing, err := resolveSaleUpdate(existing.Pricing, saleUpdateInput{
				BasePrice:   input.BasePrice,
				SaleEnabled: input.SaleEnabled,
				SalePrice:   input.SalePrice,
			})
			if err != nil {
				discardImage()
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			update["pricing"] = pricing
		}

		categoryID, productTypeID, ok := resolveProductRefs(c, route, st, theater, input)
		if !ok {
			discardImage()
			return
		}
		if !categoryID.IsZero() {
			update["categoryId"] = categoryID
		}
		if productTypeID != nil {
			update["productTypeId"] = *productTypeID
		}

		if input.CurrentStock != nil {
			if *input.CurrentStock < 0 {
				discardImage()
				respondWithError(c, http.StatusBadRequest, route, "currentStock cannot be negative")
				return
			}
			update["inventory.currentStock"] = *input.CurrentStock
		}
		if input.MinStock != nil {
			update["inventory.minStock"] = *input.MinStock
		}
		if input.TrackStock != nil {
			update["inventory.trackStock"] = *input.TrackStock
		}
		if input.Unit != nil {
			update["inventory.unit"] = *input.Unit
		}
		if input.IsAvailable != nil {
			update["isAvailable"] = *input.IsAvailable
		}
		if input.ImagePath != "" {
			update["imagePath"] = input.ImagePath
		}
		if len(update) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}
		update["updatedAt"] = time.Now()

		updated, err := st.Products.Update(ctx, theater, productID, update)
		if err != nil {
			discardImage()
			respondServiceError(c, route, err)
			return
		}

		if input.ImagePath != "" && existing.ImagePath != "" && existing.ImagePath != input.ImagePath {
			if err := images.Delete(existing.ImagePath); err != nil {
				logger.For("upload").WithError(err).Warn("failed to delete replaced image")
			}
		}

		inv.drop(c, "menu")
		respondOK(c, http.StatusOK, updated.WithDerived())
	}
}

func DeleteProduct(st *store.Store, inv Invalidator) gin.HandlerFunc {
	return setEntryActive[models.Product](st.Products, "DELETE /api/theater-products/:theaterId/:productId", "productId", false, inv, "menu")
}

func RestoreProduct(st *store.Store, inv Invalidator) gin.HandlerFunc {
	return setEntryActive[models.Product](st.Products, "PUT /api/theater-products/:theaterId/:productId/restore", "productId", true, inv, "menu")
}

// SetProductStock overwrites currentStock, used after a manual count.
func SetProductStock(st *store.Store, inv Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/theater-products/:theaterId/:productId/stock"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		productID, ok := objectIDParam(c, route, "productId")
		if !ok {
			return
		}

		var req stockUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if *req.CurrentStock < 0 {
			respondWithError(c, http.StatusBadRequest, route, "currentStock cannot be negative")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		updated, err := st.Products.Update(ctx, theater, productID, map[string]any{
			"inventory.currentStock": *req.CurrentStock,
			"updatedAt":              time.Now(),
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		inv.drop(c, "menu")
		respondOK(c, http.StatusOK, updated.WithDerived())
	}
}

// resolveProductRefs checks that referenced category and product type exist
// in the theater. Zero values mean the field was not sent.
func resolveProductRefs(c *gin.Context, route string, st *store.Store, theater primitive.ObjectID, input productInput) (primitive.ObjectID, *primitive.ObjectID, bool) {
	ctx, cancel := requestContext(c)
	defer cancel()

	var categoryID primitive.ObjectID
	if input.CategoryID != nil && strings.TrimSpace(*input.CategoryID) != "" {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(*input.CategoryID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid categoryId")
			return categoryID, nil, false
		}
		if _, err := st.Categories.Get(ctx, theater, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusBadRequest, route, "category not found: "+id.Hex())
			} else {
				respondServiceError(c, route, err)
			}
			return categoryID, nil, false
		}
		categoryID = id
	}

	var productTypeID *primitive.ObjectID
	if input.ProductTypeID != nil && strings.TrimSpace(*input.ProductTypeID) != "" {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(*input.ProductTypeID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productTypeId")
			return categoryID, nil, false
		}
		if _, err := st.ProductTypes.Get(ctx, theater, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondWithError(c, http.StatusBadRequest, route, "product type not found: "+id.Hex())
			} else {
				respondServiceError(c, route, err)
			}
			return categoryID, nil, false
		}
		productTypeID = &id
	}
	return categoryID, productTypeID, true
}
