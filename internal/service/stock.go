package service

import (
	"time"

	"canteen/internal/models"
)

// ComputeStockEntry derives closing stock and carry forward from the
// movement counts. Closing stock never goes below zero. Stock with an expiry
// date on or before the entry date is not carried into the next day; stock
// without an expiry date always is.
func ComputeStockEntry(e models.StockEntry) models.StockEntry {
	closing := e.OpeningStock + e.Added - e.Sold - e.Expired - e.Damaged
	if closing < 0 {
		closing = 0
	}
	e.ClosingStock = closing

	e.CarryForward = closing
	if e.ExpiryDate != nil && !truncateDay(*e.ExpiryDate).After(truncateDay(e.Date)) {
		e.CarryForward = 0
	}
	return e
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ValidateStockCounts rejects negative movement counts.
func ValidateStockCounts(e models.StockEntry) error {
	counts := []struct {
		name  string
		value int
	}{
		{"openingStock", e.OpeningStock},
		{"added", e.Added},
		{"sold", e.Sold},
		{"expired", e.Expired},
		{"damaged", e.Damaged},
	}
	for _, c := range counts {
		if c.value < 0 {
			return badRequest("INVALID_STOCK", "%s cannot be negative", c.name)
		}
	}
	return nil
}
