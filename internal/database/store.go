package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"canteen/internal/models"
	"canteen/internal/store"
)

// Transactor runs callbacks inside a MongoDB session transaction.
type Transactor struct {
	client *mongo.Client
}

func (t Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// NewStore wires the MongoDB repositories for db.
func NewStore(db *mongo.Database) *store.Store {
	return &store.Store{
		Tx:           Transactor{client: db.Client()},
		Products:     &ProductRepo{ContainerRepo: NewContainerRepo[models.Product](db, store.ProductsSpec)},
		Categories:   NewContainerRepo[models.Category](db, store.CategoriesSpec),
		ProductTypes: NewContainerRepo[models.ProductType](db, store.ProductTypesSpec),
		QRNames:      NewContainerRepo[models.QRName](db, store.QRNamesSpec),
		Roles:        NewContainerRepo[models.Role](db, store.RolesSpec),
		Stock:        NewContainerRepo[models.StockEntry](db, store.StockSpec),
		Orders:       NewOrderRepo(db),
		Counters:     NewCounterRepo(db),
		Users:        NewUserRepo(db),
		Tokens:       NewTokenRepo(db),
		Settings:     NewSettingsRepo(db),
		Ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, readpref.Primary())
		},
	}
}

func upsert() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}
