package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/store"
)

/*
Public menu routes used by the QR ordering page. No authentication.
*/

func loadMenu(ctx context.Context, st *store.Store, theater primitive.ObjectID) ([]models.Product, []models.Category, error) {
	products, err := st.Products.Load(ctx, theater)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}
	categories, err := st.Categories.Load(ctx, theater)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}
	return products.Items, categories.Items, nil
}

func MenuCategories(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/menu/:theaterId/categories"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), st); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		theater, ok := objectIDParam(c, route, "theaterId")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		_, categories, err := loadMenu(ctx, st, theater)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, menuCategories(categories))
	}
}

// MenuProducts lists orderable products. Pagination applies only when both
// page and limit are sent.
func MenuProducts(st *store.Store) gin.HandlerFunc {
	return menuProductsHandler("GET /api/menu/:theaterId/products", false)(st)
}

// MenuOffers lists products currently on sale.
func MenuOffers(st *store.Store) gin.HandlerFunc {
	return menuProductsHandler("GET /api/menu/:theaterId/offers", true)(st)
}

func menuProductsHandler(route string, onSaleOnly bool) func(*store.Store) gin.HandlerFunc {
	return func(st *store.Store) gin.HandlerFunc {
		return func(c *gin.Context) {
			defer handlePanic(c, route)

			if err := ensureDBConnection(c.Request.Context(), st); err != nil {
				respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
				return
			}
			theater, ok := objectIDParam(c, route, "theaterId")
			if !ok {
				return
			}

			ctx, cancel := requestContext(c)
			defer cancel()

			products, categories, err := loadMenu(ctx, st, theater)
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			list := menuProducts(products, categories, menuFilter{
				CategoryID: strings.TrimSpace(c.Query("categoryId")),
				Search:     c.Query("search"),
				OnSaleOnly: onSaleOnly,
			})

			pageStr, limitStr := c.Query("page"), c.Query("limit")
			if pageStr == "" || limitStr == "" {
				respondOK(c, http.StatusOK, list)
				return
			}
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"success":    true,
				"data":       pageSlice(list, page, limit),
				"pagination": paginationMeta(page, limit, int64(len(list))),
			})
		}
	}
}
