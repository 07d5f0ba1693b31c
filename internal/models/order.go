package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCancelled = "cancelled"
	OrderStatusCompleted = "completed"
)

var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusServed,
	OrderStatusCancelled,
	OrderStatusCompleted,
}

func IsValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

var PaymentMethods = []string{"cash", "card", "upi", "online"}

func IsValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// OrderItem represents a single product line within an order.
type OrderItem struct {
	ProductID  primitive.ObjectID `bson:"productId" json:"productId"`
	Name       string             `bson:"name" json:"name"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	UnitPrice  float64            `bson:"unitPrice" json:"unitPrice"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
}

type OrderPricing struct {
	Subtotal  float64 `bson:"subtotal" json:"subtotal"`
	TaxAmount float64 `bson:"taxAmount" json:"taxAmount"`
	Total     float64 `bson:"total" json:"total"`
	Currency  string  `bson:"currency" json:"currency"`
}

type OrderPayment struct {
	Method string `bson:"method" json:"method"`
	Status string `bson:"status" json:"status"`
}

// OrderCustomer captures lightweight customer and seat details for an order.
type OrderCustomer struct {
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Seat    string `bson:"seat,omitempty" json:"seat,omitempty"`
	QRName  string `bson:"qrName,omitempty" json:"qrName,omitempty"`
	Section string `bson:"section,omitempty" json:"section,omitempty"`
}

// StaffInfo is set only when the order was placed with a valid staff token.
type StaffInfo struct {
	StaffID  primitive.ObjectID `bson:"staffId" json:"staffId"`
	Username string             `bson:"username" json:"username"`
	Role     string             `bson:"role" json:"role"`
}

// Order is embedded in the theater's order container.
type Order struct {
	ID                  primitive.ObjectID `bson:"_id" json:"id"`
	OrderNumber         string             `bson:"orderNumber" json:"orderNumber"`
	Items               []OrderItem        `bson:"items" json:"items"`
	Pricing             OrderPricing       `bson:"pricing" json:"pricing"`
	Payment             OrderPayment       `bson:"payment" json:"payment"`
	Status              string             `bson:"status" json:"status"`
	OrderType           string             `bson:"orderType" json:"orderType"`
	CustomerInfo        OrderCustomer      `bson:"customerInfo" json:"customerInfo"`
	TableNumber         string             `bson:"tableNumber,omitempty" json:"tableNumber,omitempty"`
	SpecialInstructions string             `bson:"specialInstructions,omitempty" json:"specialInstructions,omitempty"`
	StaffInfo           *StaffInfo         `bson:"staffInfo,omitempty" json:"staffInfo,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (o Order) EntryID() primitive.ObjectID { return o.ID }
func (o Order) EntryActive() bool           { return o.Status != OrderStatusCancelled }

// OrderMetadata holds the counters incremented on every order append.
type OrderMetadata struct {
	TotalOrders  int       `bson:"totalOrders" json:"totalOrders"`
	TotalRevenue float64   `bson:"totalRevenue" json:"totalRevenue"`
	LastOrderAt  time.Time `bson:"lastOrderAt" json:"lastOrderAt"`
}

// Counter is a per-theater, per-day order sequence.
type Counter struct {
	ID      string             `bson:"_id" json:"id"`
	Theater primitive.ObjectID `bson:"theater" json:"theater"`
	Day     string             `bson:"day" json:"day"`
	Seq     int64              `bson:"seq" json:"seq"`
}

// OrderContainer is the per-theater order document.
type OrderContainer struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Theater   primitive.ObjectID `bson:"theater" json:"theater"`
	OrderList []Order            `bson:"orderList" json:"orderList"`
	Metadata  OrderMetadata      `bson:"metadata" json:"metadata"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
