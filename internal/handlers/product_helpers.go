package handlers

import (
	"sort"
	"strings"

	"canteen/internal/models"
)

type menuFilter struct {
	CategoryID string
	Search     string
	OnSaleOnly bool
}

// menuProducts keeps what a customer may order: active, available products
// of active categories. Results are sorted by name.
func menuProducts(products []models.Product, categories []models.Category, f menuFilter) []models.Product {
	activeCategory := make(map[string]bool, len(categories))
	for _, cat := range categories {
		if cat.IsActive {
			activeCategory[cat.ID.Hex()] = true
		}
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !p.IsActive || !p.IsAvailable || !activeCategory[p.CategoryID.Hex()] {
			continue
		}
		if f.CategoryID != "" && p.CategoryID.Hex() != f.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if f.OnSaleOnly && !p.OnSale() {
			continue
		}
		out = append(out, p.WithDerived())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func menuCategories(categories []models.Category) []models.Category {
	out := make([]models.Category, 0, len(categories))
	for _, cat := range categories {
		if cat.IsActive {
			out = append(out, cat)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out
}

func pageSlice[T any](items []T, page, limit int64) []T {
	total := int64(len(items))
	start := (page - 1) * limit
	if start >= total {
		return []T{}
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end]
}
