package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	CategoryName string             `bson:"categoryName" json:"categoryName"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL     string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	SortOrder    int                `bson:"sortOrder" json:"sortOrder"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c Category) EntryID() primitive.ObjectID { return c.ID }
func (c Category) EntryActive() bool           { return c.IsActive }

type ProductType struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	ProductType string             `bson:"productType" json:"productType"`
	ProductCode string             `bson:"productCode,omitempty" json:"productCode,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (p ProductType) EntryID() primitive.ObjectID { return p.ID }
func (p ProductType) EntryActive() bool           { return p.IsActive }

// QRName is a seat/section label printed on a table QR code.
type QRName struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	QRName      string             `bson:"qrName" json:"qrName"`
	SeatClass   string             `bson:"seatClass" json:"seatClass"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (q QRName) EntryID() primitive.ObjectID { return q.ID }
func (q QRName) EntryActive() bool           { return q.IsActive }
