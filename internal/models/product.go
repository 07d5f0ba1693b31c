package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductPricing struct {
	BasePrice   float64 `bson:"basePrice" json:"basePrice"`
	SaleEnabled bool    `bson:"saleEnabled" json:"saleEnabled"`
	SalePrice   float64 `bson:"salePrice" json:"salePrice"`
}

type ProductInventory struct {
	CurrentStock int    `bson:"currentStock" json:"currentStock"`
	MinStock     int    `bson:"minStock" json:"minStock"`
	TrackStock   bool   `bson:"trackStock" json:"trackStock"`
	Unit         string `bson:"unit,omitempty" json:"unit,omitempty"`
}

type Product struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	Name          string              `bson:"name" json:"name"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	ProductCode   string              `bson:"productCode,omitempty" json:"productCode,omitempty"`
	CategoryID    primitive.ObjectID  `bson:"categoryId" json:"categoryId"`
	ProductTypeID *primitive.ObjectID `bson:"productTypeId,omitempty" json:"productTypeId,omitempty"`
	Pricing       ProductPricing      `bson:"pricing" json:"pricing"`
	Inventory     ProductInventory    `bson:"inventory" json:"inventory"`
	ImagePath     string              `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	IsActive      bool                `bson:"isActive" json:"isActive"`
	IsAvailable   bool                `bson:"isAvailable" json:"isAvailable"`
	IsOnSale      bool                `bson:"-" json:"isOnSale"`
	InStock       bool                `bson:"-" json:"inStock"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (p Product) EntryID() primitive.ObjectID { return p.ID }
func (p Product) EntryActive() bool           { return p.IsActive }

// OnSale reports whether the sale price currently applies.
func (p Product) OnSale() bool {
	return p.Pricing.SaleEnabled && p.Pricing.SalePrice > 0 && p.Pricing.SalePrice < p.Pricing.BasePrice
}

// UnitPrice is the price charged per unit at order time.
func (p Product) UnitPrice() float64 {
	if p.OnSale() {
		return p.Pricing.SalePrice
	}
	return p.Pricing.BasePrice
}

// HasStockFor reports whether qty units can be sold. Untracked products
// always have stock.
func (p Product) HasStockFor(qty int) bool {
	if !p.Inventory.TrackStock {
		return true
	}
	return p.Inventory.CurrentStock >= qty
}

// WithDerived fills the response-only flags.
func (p Product) WithDerived() Product {
	p.IsOnSale = p.OnSale()
	p.InStock = !p.Inventory.TrackStock || p.Inventory.CurrentStock > 0
	return p
}
