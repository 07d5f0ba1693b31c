package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"canteen/internal/models"
	"canteen/internal/store"
)

// ContainerRepo stores one theater-scoped container type in MongoDB.
type ContainerRepo[T models.Entry] struct {
	coll *mongo.Collection
	spec store.Spec
	now  func() time.Time
}

func NewContainerRepo[T models.Entry](db *mongo.Database, spec store.Spec) *ContainerRepo[T] {
	return &ContainerRepo[T]{coll: db.Collection(spec.Collection), spec: spec, now: time.Now}
}

func (r *ContainerRepo[T]) field(path string) string {
	return r.spec.ListField + "." + path
}

func (r *ContainerRepo[T]) Load(ctx context.Context, theater primitive.ObjectID) (models.Container[T], error) {
	var raw bson.Raw
	err := r.coll.FindOne(ctx, bson.M{"theater": theater}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Container[T]{}, store.ErrNotFound
	}
	if err != nil {
		return models.Container[T]{}, err
	}
	return store.DecodeContainer[T](raw, r.spec.ListField)
}

func (r *ContainerRepo[T]) Get(ctx context.Context, theater, id primitive.ObjectID) (T, error) {
	var zero T
	c, err := r.Load(ctx, theater)
	if err != nil {
		return zero, err
	}
	item, ok := c.Find(id)
	if !ok {
		return zero, store.ErrNotFound
	}
	return item, nil
}

func (r *ContainerRepo[T]) Create(ctx context.Context, theater primitive.ObjectID, item T) (models.Container[T], error) {
	now := r.now()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"theater": theater},
		bson.M{
			"$push":        bson.M{r.spec.ListField: item},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		upsert(),
	)
	if err != nil {
		return models.Container[T]{}, err
	}
	return r.refreshMetadata(ctx, theater)
}

func (r *ContainerRepo[T]) Update(ctx context.Context, theater, id primitive.ObjectID, fields map[string]any) (T, error) {
	var zero T
	set := bson.M{
		r.field("$.updatedAt"): r.now(),
		"updatedAt":            r.now(),
	}
	for k, v := range fields {
		set[r.field("$."+k)] = v
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"theater": theater, r.field("_id"): id},
		bson.M{"$set": set},
	)
	if err != nil {
		return zero, err
	}
	if res.MatchedCount == 0 {
		return zero, store.ErrNotFound
	}
	c, err := r.refreshMetadata(ctx, theater)
	if err != nil {
		return zero, err
	}
	item, _ := c.Find(id)
	return item, nil
}

func (r *ContainerRepo[T]) SetActive(ctx context.Context, theater, id primitive.ObjectID, active bool) (T, error) {
	var zero T
	now := r.now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"theater": theater,
			r.spec.ListField: bson.M{"$elemMatch": bson.M{
				"_id":      id,
				"isActive": !active,
			}},
		},
		bson.M{"$set": bson.M{
			r.field("$.isActive"):  active,
			r.field("$.updatedAt"): now,
			"updatedAt":            now,
		}},
	)
	if err != nil {
		return zero, err
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, theater, id); err != nil {
			return zero, err
		}
		if active {
			return zero, store.ErrAlreadyActive
		}
		return zero, store.ErrAlreadyInactive
	}
	c, err := r.refreshMetadata(ctx, theater)
	if err != nil {
		return zero, err
	}
	item, _ := c.Find(id)
	return item, nil
}

func (r *ContainerRepo[T]) Exists(ctx context.Context, theater primitive.ObjectID, match map[string]any, exclude primitive.ObjectID) (bool, error) {
	elem := bson.M{"_id": bson.M{"$ne": exclude}}
	for k, v := range match {
		elem[k] = v
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"theater":        theater,
		r.spec.ListField: bson.M{"$elemMatch": elem},
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// refreshMetadata recounts the array and stores the result. It runs as a
// separate write, so counts are best-effort outside a transaction.
func (r *ContainerRepo[T]) refreshMetadata(ctx context.Context, theater primitive.ObjectID) (models.Container[T], error) {
	c, err := r.Load(ctx, theater)
	if err != nil {
		return c, err
	}
	c.Metadata = models.CountMetadata(c.Items, r.now())
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"theater": theater},
		bson.M{"$set": bson.M{"metadata": c.Metadata}},
	)
	return c, err
}

// ProductRepo adds the conditional stock decrement to the product container.
type ProductRepo struct {
	*ContainerRepo[models.Product]
}

func (r *ProductRepo) DecrementStock(ctx context.Context, theater, productID primitive.ObjectID, qty int) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"theater": theater,
			r.spec.ListField: bson.M{"$elemMatch": bson.M{
				"_id":                    productID,
				"inventory.currentStock": bson.M{"$gte": qty},
			}},
		},
		bson.M{
			"$inc": bson.M{r.field("$.inventory.currentStock"): -qty},
			"$set": bson.M{r.field("$.updatedAt"): r.now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, theater, productID); err != nil {
			return err
		}
		return store.ErrInsufficientStock
	}
	return nil
}
