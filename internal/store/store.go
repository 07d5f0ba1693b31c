// Package store defines the persistence contracts shared by the MongoDB
// repositories and the in-memory driver.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyActive     = errors.New("already active")
	ErrAlreadyInactive   = errors.New("already inactive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("duplicate")
)

// Spec names the collection and array field of a container type.
type Spec struct {
	Collection string
	ListField  string
}

var (
	ProductsSpec     = Spec{Collection: "productlist", ListField: "productList"}
	CategoriesSpec   = Spec{Collection: "categories", ListField: "categoryList"}
	ProductTypesSpec = Spec{Collection: "producttypes", ListField: "productTypeList"}
	RolesSpec        = Spec{Collection: "roles", ListField: "roleList"}
	QRNamesSpec      = Spec{Collection: "qrcodenames", ListField: "qrNameList"}
	StockSpec        = Spec{Collection: "stocks", ListField: "stockList"}
	OrdersSpec       = Spec{Collection: "theaterorders", ListField: "orderList"}
)

// ContainerSpecs lists every container collection; each needs a unique
// index on theater.
var ContainerSpecs = []Spec{
	ProductsSpec, CategoriesSpec, ProductTypesSpec, RolesSpec, QRNamesSpec, StockSpec, OrdersSpec,
}

// Containers is the CRUD surface over one theater-scoped container type.
type Containers[T models.Entry] interface {
	// Load returns ErrNotFound when the theater has no container yet.
	Load(ctx context.Context, theater primitive.ObjectID) (models.Container[T], error)
	Get(ctx context.Context, theater, id primitive.ObjectID) (T, error)
	// Create appends item, creating the container on first insert.
	Create(ctx context.Context, theater primitive.ObjectID, item T) (models.Container[T], error)
	// Update sets fields (dotted paths relative to the item) on one item.
	Update(ctx context.Context, theater, id primitive.ObjectID, fields map[string]any) (T, error)
	// SetActive soft-deletes or restores an item.
	SetActive(ctx context.Context, theater, id primitive.ObjectID, active bool) (T, error)
	// Exists reports whether an item other than exclude matches every field.
	Exists(ctx context.Context, theater primitive.ObjectID, match map[string]any, exclude primitive.ObjectID) (bool, error)
}

type ProductStore interface {
	Containers[models.Product]
	// DecrementStock subtracts qty only while currentStock >= qty and
	// returns ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, theater, productID primitive.ObjectID, qty int) error
}

type OrderStore interface {
	// Append pushes the order and bumps metadata counters, creating the
	// container on first order. It returns the stored order.
	Append(ctx context.Context, theater primitive.ObjectID, order models.Order) (models.Order, error)
	List(ctx context.Context, theater primitive.ObjectID) ([]models.Order, error)
	// Find locates an order by id across all theaters.
	Find(ctx context.Context, orderID primitive.ObjectID) (primitive.ObjectID, models.Order, error)
	UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status string, at time.Time) (models.Order, error)
}

type CounterStore interface {
	// Next atomically increments and returns the counter for key.
	Next(ctx context.Context, key string, theater primitive.ObjectID, day string) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	// FindByLogin matches either email or username.
	FindByLogin(ctx context.Context, login string) (models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type TokenStore interface {
	Insert(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)
	FindActive(ctx context.Context, hash string) (models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
	RevokeByHash(ctx context.Context, hash string) (bool, error)
}

type SettingsStore interface {
	// General returns ErrNotFound until settings were saved once.
	General(ctx context.Context) (models.GeneralSettings, error)
	SaveGeneral(ctx context.Context, s models.GeneralSettings) error
}

// Transactor runs fn so that all of its writes commit or none do.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository the application uses.
type Store struct {
	Tx           Transactor
	Products     ProductStore
	Categories   Containers[models.Category]
	ProductTypes Containers[models.ProductType]
	QRNames      Containers[models.QRName]
	Roles        Containers[models.Role]
	Stock        Containers[models.StockEntry]
	Orders       OrderStore
	Counters     CounterStore
	Users        UserStore
	Tokens       TokenStore
	Settings     SettingsStore
	Ping         func(ctx context.Context) error
}
