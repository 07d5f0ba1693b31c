package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockEntry is one day's stock movement for a product.
type StockEntry struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	Date         time.Time          `bson:"date" json:"date"`
	OpeningStock int                `bson:"openingStock" json:"openingStock"`
	Added        int                `bson:"added" json:"added"`
	Sold         int                `bson:"sold" json:"sold"`
	Expired      int                `bson:"expired" json:"expired"`
	Damaged      int                `bson:"damaged" json:"damaged"`
	ClosingStock int                `bson:"closingStock" json:"closingStock"`
	CarryForward int                `bson:"carryForward" json:"carryForward"`
	ExpiryDate   *time.Time         `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (s StockEntry) EntryID() primitive.ObjectID { return s.ID }
func (s StockEntry) EntryActive() bool           { return s.IsActive }
