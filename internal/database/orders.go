package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"canteen/internal/models"
	"canteen/internal/store"
)

type OrderRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{coll: db.Collection(store.OrdersSpec.Collection), now: time.Now}
}

// Append pushes the order and returns it by projecting only the last array
// element of the updated document.
func (r *OrderRepo) Append(ctx context.Context, theater primitive.ObjectID, order models.Order) (models.Order, error) {
	now := r.now()
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"orderList": bson.M{"$slice": -1}})

	var c models.OrderContainer
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"theater": theater},
		bson.M{
			"$push": bson.M{"orderList": order},
			"$inc": bson.M{
				"metadata.totalOrders":  1,
				"metadata.totalRevenue": order.Pricing.Total,
			},
			"$set":         bson.M{"metadata.lastOrderAt": now, "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		opts,
	).Decode(&c)
	if err != nil {
		return order, err
	}
	if len(c.OrderList) == 0 {
		return order, errors.New("order append returned no order")
	}
	return c.OrderList[len(c.OrderList)-1], nil
}

func (r *OrderRepo) List(ctx context.Context, theater primitive.ObjectID) ([]models.Order, error) {
	var c models.OrderContainer
	err := r.coll.FindOne(ctx, bson.M{"theater": theater}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	if c.OrderList == nil {
		c.OrderList = []models.Order{}
	}
	return c.OrderList, nil
}

func (r *OrderRepo) Find(ctx context.Context, orderID primitive.ObjectID) (primitive.ObjectID, models.Order, error) {
	var c models.OrderContainer
	err := r.coll.FindOne(ctx,
		bson.M{"orderList._id": orderID},
		options.FindOne().SetProjection(bson.M{
			"theater":   1,
			"orderList": bson.M{"$elemMatch": bson.M{"_id": orderID}},
		}),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, models.Order{}, store.ErrNotFound
	}
	if err != nil {
		return primitive.NilObjectID, models.Order{}, err
	}
	if len(c.OrderList) == 0 {
		return primitive.NilObjectID, models.Order{}, store.ErrNotFound
	}
	return c.Theater, c.OrderList[0], nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status string, at time.Time) (models.Order, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{
			"theater":   1,
			"orderList": bson.M{"$elemMatch": bson.M{"_id": orderID}},
		})

	var c models.OrderContainer
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"orderList._id": orderID},
		bson.M{"$set": bson.M{
			"orderList.$.status":    status,
			"orderList.$.updatedAt": at,
			"updatedAt":             at,
		}},
		opts,
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, store.ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	if len(c.OrderList) == 0 {
		return models.Order{}, store.ErrNotFound
	}
	return c.OrderList[0], nil
}

type CounterRepo struct {
	coll *mongo.Collection
}

func NewCounterRepo(db *mongo.Database) *CounterRepo {
	return &CounterRepo{coll: db.Collection("counters")}
}

// Next increments the sequence with a single upserting $inc.
func (r *CounterRepo) Next(ctx context.Context, key string, theater primitive.ObjectID, day string) (int64, error) {
	var c models.Counter
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{
			"$inc":         bson.M{"seq": 1},
			"$setOnInsert": bson.M{"theater": theater, "day": day},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}
