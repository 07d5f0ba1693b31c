package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

func TestParsePaginationParams(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(20), limit)

	_, limit, err = parsePaginationParams("2", "500")
	require.NoError(t, err)
	assert.Equal(t, int64(maxPageLimit), limit)

	for _, bad := range [][2]string{{"0", "10"}, {"x", ""}, {"1", "-5"}} {
		_, _, err := parsePaginationParams(bad[0], bad[1])
		assert.ErrorIs(t, err, errInvalidPagination, bad)
	}

	meta := paginationMeta(2, 10, 25)
	assert.Equal(t, int64(3), meta["totalPages"])
	assert.Equal(t, true, meta["hasNext"])
	assert.Equal(t, true, meta["hasPrev"])
}

func TestMenuProductsFilters(t *testing.T) {
	open := models.Category{ID: primitive.NewObjectID(), CategoryName: "Snacks", SortOrder: 2, IsActive: true}
	drinks := models.Category{ID: primitive.NewObjectID(), CategoryName: "Drinks", SortOrder: 1, IsActive: true}
	closed := models.Category{ID: primitive.NewObjectID(), CategoryName: "Closed", IsActive: false}

	product := func(name string, cat models.Category, active, available bool, pricing models.ProductPricing) models.Product {
		return models.Product{ID: primitive.NewObjectID(), Name: name, CategoryID: cat.ID, IsActive: active, IsAvailable: available, Pricing: pricing}
	}
	products := []models.Product{
		product("Popcorn", open, true, true, models.ProductPricing{BasePrice: 100, SaleEnabled: true, SalePrice: 80}),
		product("Nachos", open, true, true, models.ProductPricing{BasePrice: 120}),
		product("Cola", drinks, true, true, models.ProductPricing{BasePrice: 50}),
		product("Hidden", closed, true, true, models.ProductPricing{BasePrice: 10}),
		product("Retired", open, false, true, models.ProductPricing{BasePrice: 10}),
		product("Sold out", open, true, false, models.ProductPricing{BasePrice: 10}),
	}
	cats := []models.Category{open, drinks, closed}

	all := menuProducts(products, cats, menuFilter{})
	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Cola", "Nachos", "Popcorn"}, names)

	offers := menuProducts(products, cats, menuFilter{OnSaleOnly: true})
	require.Len(t, offers, 1)
	assert.True(t, offers[0].IsOnSale)

	assert.Len(t, menuProducts(products, cats, menuFilter{CategoryID: drinks.ID.Hex()}), 1)
	assert.Len(t, menuProducts(products, cats, menuFilter{Search: "NACH"}), 1)

	sorted := menuCategories(cats)
	require.Len(t, sorted, 2)
	assert.Equal(t, "Drinks", sorted[0].CategoryName)

	assert.Equal(t, []int{3}, pageSlice([]int{1, 2, 3}, 2, 2))
	assert.Empty(t, pageSlice([]int{1, 2, 3}, 3, 2))
}

func TestMenuURLAndSize(t *testing.T) {
	theater, _ := primitive.ObjectIDFromHex("65a000000000000000000001")
	assert.Equal(t,
		"https://menu.example.com/menu/65a000000000000000000001?qrName=Screen+1&seat=Gold",
		menuURL("https://menu.example.com/", theater, "Screen 1", "Gold"))

	assert.Equal(t, defaultQRSize, qrSize(""))
	assert.Equal(t, minQRSize, qrSize("10"))
	assert.Equal(t, maxQRSize, qrSize("5000"))
	assert.Equal(t, 512, qrSize("512"))
}
