package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/service"
	"canteen/internal/store"
)

type stockEntryRequest struct {
	ProductID    string `json:"productId" binding:"required"`
	Date         string `json:"date" binding:"required"`
	OpeningStock int    `json:"openingStock"`
	Added        int    `json:"added"`
	Sold         int    `json:"sold"`
	Expired      int    `json:"expired"`
	Damaged      int    `json:"damaged"`
	ExpiryDate   string `json:"expiryDate"`
	Notes        string `json:"notes"`
}

type stockEntryUpdateRequest struct {
	OpeningStock *int    `json:"openingStock"`
	Added        *int    `json:"added"`
	Sold         *int    `json:"sold"`
	Expired      *int    `json:"expired"`
	Damaged      *int    `json:"damaged"`
	ExpiryDate   *string `json:"expiryDate"`
	Notes        *string `json:"notes"`
}

func parseDay(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if len(value) > len("2006-01-02") {
		value = value[:len("2006-01-02")]
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListStockEntries returns entries newest day first, optionally filtered by
// productId and a startDate/endDate range.
func ListStockEntries(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/theater-stock/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		dates, err := service.ParseDateRange(c.Query("startDate"), c.Query("endDate"), time.UTC)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		productID := strings.TrimSpace(c.Query("productId"))

		ctx, cancel := requestContext(c)
		defer cancel()

		container, err := st.Stock.Load(ctx, theater)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []models.StockEntry{}, "metadata": models.Metadata{}})
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		entries := make([]models.StockEntry, 0, len(container.Items))
		for _, e := range container.Active() {
			if productID != "" && e.ProductID.Hex() != productID {
				continue
			}
			if !dates.Contains(e.Date) {
				continue
			}
			entries = append(entries, e)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Date.After(entries[j].Date)
		})
		c.JSON(http.StatusOK, gin.H{"success": true, "data": entries, "metadata": container.Metadata})
	}
}

func CreateStockEntry(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/theater-stock/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		var req stockEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}
		day, err := parseDay(req.Date)
		if err != nil || day == nil {
			respondWithError(c, http.StatusBadRequest, route, "date must be YYYY-MM-DD")
			return
		}
		expiry, err := parseDay(req.ExpiryDate)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "expiryDate must be YYYY-MM-DD")
			return
		}

		ctx, cancel := requestContext(c)
		_, err = st.Products.Get(ctx, theater, productID)
		cancel()
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, http.StatusBadRequest, route, "product not found: "+productID.Hex())
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		now := time.Now()
		entry := models.StockEntry{
			ID:           primitive.NewObjectID(),
			ProductID:    productID,
			Date:         *day,
			OpeningStock: req.OpeningStock,
			Added:        req.Added,
			Sold:         req.Sold,
			Expired:      req.Expired,
			Damaged:      req.Damaged,
			ExpiryDate:   expiry,
			Notes:        strings.TrimSpace(req.Notes),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := service.ValidateStockCounts(entry); err != nil {
			respondServiceError(c, route, err)
			return
		}
		createEntry(c, route, st.Stock, theater, service.ComputeStockEntry(entry))
	}
}

// UpdateStockEntry recomputes closing stock and carry forward from the
// merged counts.
func UpdateStockEntry(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/theater-stock/:theaterId/:entryId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		entryID, ok := objectIDParam(c, route, "entryId")
		if !ok {
			return
		}

		var req stockEntryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		entry, err := st.Stock.Get(ctx, theater, entryID)
		cancel()
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		for dst, src := range map[*int]*int{
			&entry.OpeningStock: req.OpeningStock,
			&entry.Added:        req.Added,
			&entry.Sold:         req.Sold,
			&entry.Expired:      req.Expired,
			&entry.Damaged:      req.Damaged,
		} {
			if src != nil {
				*dst = *src
			}
		}
		if req.ExpiryDate != nil {
			expiry, err := parseDay(*req.ExpiryDate)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "expiryDate must be YYYY-MM-DD")
				return
			}
			entry.ExpiryDate = expiry
		}
		if req.Notes != nil {
			entry.Notes = strings.TrimSpace(*req.Notes)
		}
		if err := service.ValidateStockCounts(entry); err != nil {
			respondServiceError(c, route, err)
			return
		}
		entry = service.ComputeStockEntry(entry)

		updateEntry(c, route, st.Stock, theater, entryID, map[string]any{
			"openingStock": entry.OpeningStock,
			"added":        entry.Added,
			"sold":         entry.Sold,
			"expired":      entry.Expired,
			"damaged":      entry.Damaged,
			"closingStock": entry.ClosingStock,
			"carryForward": entry.CarryForward,
			"expiryDate":   entry.ExpiryDate,
			"notes":        entry.Notes,
		})
	}
}

func DeleteStockEntry(st *store.Store) gin.HandlerFunc {
	return setEntryActive(st.Stock, "DELETE /api/theater-stock/:theaterId/:entryId", "entryId", false, nil)
}
