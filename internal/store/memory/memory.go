// Package memory is an in-process storage driver with the same semantics as
// the MongoDB repositories. Documents are kept BSON-encoded so a transaction
// snapshot is a cheap map copy.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"canteen/internal/models"
	"canteen/internal/store"
)

type txKey struct{ db *DB }

// DB holds every collection as key -> encoded document.
type DB struct {
	mu   sync.Mutex
	docs map[string]map[string]bson.Raw
	now  func() time.Time
}

func New() *DB {
	return &DB{
		docs: make(map[string]map[string]bson.Raw),
		now:  time.Now,
	}
}

// SetClock overrides the time source used for timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// NewStore wires a fresh in-memory database into a store.Store.
func NewStore() *store.Store {
	return New().Store()
}

func (db *DB) Store() *store.Store {
	return &store.Store{
		Tx:           db,
		Products:     &products{containers: newContainers[models.Product](db, store.ProductsSpec)},
		Categories:   newContainers[models.Category](db, store.CategoriesSpec),
		ProductTypes: newContainers[models.ProductType](db, store.ProductTypesSpec),
		QRNames:      newContainers[models.QRName](db, store.QRNamesSpec),
		Roles:        newContainers[models.Role](db, store.RolesSpec),
		Stock:        newContainers[models.StockEntry](db, store.StockSpec),
		Orders:       &orders{db: db},
		Counters:     &counters{db: db},
		Users:        &users{db: db},
		Tokens:       &tokens{db: db},
		Settings:     &settings{db: db},
		Ping:         func(context.Context) error { return nil },
	}
}

// WithTransaction serializes fn against every other operation and restores
// the pre-transaction state when fn fails.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{db}) != nil {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := make(map[string]map[string]bson.Raw, len(db.docs))
	for name, coll := range db.docs {
		cp := make(map[string]bson.Raw, len(coll))
		for k, v := range coll {
			cp[k] = v
		}
		snapshot[name] = cp
	}

	if err := fn(context.WithValue(ctx, txKey{db}, true)); err != nil {
		db.docs = snapshot
		return err
	}
	return nil
}

// lock takes the database mutex unless ctx already runs inside a transaction.
func (db *DB) lock(ctx context.Context) func() {
	if ctx.Value(txKey{db}) != nil {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) put(collection, key string, v any) error {
	data, err := bson.Marshal(v)
	if err != nil {
		return err
	}
	coll, ok := db.docs[collection]
	if !ok {
		coll = make(map[string]bson.Raw)
		db.docs[collection] = coll
	}
	coll[key] = data
	return nil
}

func (db *DB) get(collection, key string, out any) (bool, error) {
	raw, ok := db.docs[collection][key]
	if !ok {
		return false, nil
	}
	return true, bson.Unmarshal(raw, out)
}

func (db *DB) raw(collection, key string) (bson.Raw, bool) {
	raw, ok := db.docs[collection][key]
	return raw, ok
}

func (db *DB) putRaw(collection, key string, raw bson.Raw) {
	coll, ok := db.docs[collection]
	if !ok {
		coll = make(map[string]bson.Raw)
		db.docs[collection] = coll
	}
	coll[key] = raw
}

// keys returns the collection keys in a stable order.
func (db *DB) keys(collection string) []string {
	coll := db.docs[collection]
	out := make([]string, 0, len(coll))
	for k := range coll {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of documents in a collection.
func (db *DB) Count(collection string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.docs[collection])
}
