package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/store"
)

type containers[T models.Entry] struct {
	db   *DB
	spec store.Spec
}

func newContainers[T models.Entry](db *DB, spec store.Spec) *containers[T] {
	return &containers[T]{db: db, spec: spec}
}

func (r *containers[T]) load(theater primitive.ObjectID) (models.Container[T], error) {
	raw, ok := r.db.raw(r.spec.Collection, theater.Hex())
	if !ok {
		return models.Container[T]{}, store.ErrNotFound
	}
	return store.DecodeContainer[T](raw, r.spec.ListField)
}

func (r *containers[T]) save(c models.Container[T]) error {
	now := r.db.now()
	c.Metadata = models.CountMetadata(c.Items, now)
	c.UpdatedAt = now
	raw, err := store.EncodeContainer(c, r.spec.ListField)
	if err != nil {
		return err
	}
	r.db.putRaw(r.spec.Collection, c.Theater.Hex(), raw)
	return nil
}

func (r *containers[T]) index(c models.Container[T], id primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.EntryID() == id {
			return i
		}
	}
	return -1
}

func (r *containers[T]) Load(ctx context.Context, theater primitive.ObjectID) (models.Container[T], error) {
	defer r.db.lock(ctx)()
	return r.load(theater)
}

func (r *containers[T]) Get(ctx context.Context, theater, id primitive.ObjectID) (T, error) {
	defer r.db.lock(ctx)()
	var zero T
	c, err := r.load(theater)
	if err != nil {
		return zero, err
	}
	item, ok := c.Find(id)
	if !ok {
		return zero, store.ErrNotFound
	}
	return item, nil
}

func (r *containers[T]) Create(ctx context.Context, theater primitive.ObjectID, item T) (models.Container[T], error) {
	defer r.db.lock(ctx)()
	c, err := r.load(theater)
	if err == store.ErrNotFound {
		c = models.Container[T]{
			ID:        primitive.NewObjectID(),
			Theater:   theater,
			CreatedAt: r.db.now(),
		}
	} else if err != nil {
		return c, err
	}
	c.Items = append(c.Items, item)
	if err := r.save(c); err != nil {
		return c, err
	}
	return r.load(theater)
}

func (r *containers[T]) Update(ctx context.Context, theater, id primitive.ObjectID, fields map[string]any) (T, error) {
	defer r.db.lock(ctx)()
	var zero T
	c, err := r.load(theater)
	if err != nil {
		return zero, err
	}
	i := r.index(c, id)
	if i < 0 {
		return zero, store.ErrNotFound
	}
	set := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	set["updatedAt"] = r.db.now()
	updated, err := store.ApplyFields(c.Items[i], set)
	if err != nil {
		return zero, err
	}
	c.Items[i] = updated
	if err := r.save(c); err != nil {
		return zero, err
	}
	return updated, nil
}

func (r *containers[T]) SetActive(ctx context.Context, theater, id primitive.ObjectID, active bool) (T, error) {
	defer r.db.lock(ctx)()
	var zero T
	c, err := r.load(theater)
	if err != nil {
		return zero, err
	}
	i := r.index(c, id)
	if i < 0 {
		return zero, store.ErrNotFound
	}
	if c.Items[i].EntryActive() == active {
		if active {
			return zero, store.ErrAlreadyActive
		}
		return zero, store.ErrAlreadyInactive
	}
	updated, err := store.ApplyFields(c.Items[i], map[string]any{
		"isActive":  active,
		"updatedAt": r.db.now(),
	})
	if err != nil {
		return zero, err
	}
	c.Items[i] = updated
	if err := r.save(c); err != nil {
		return zero, err
	}
	return updated, nil
}

func (r *containers[T]) Exists(ctx context.Context, theater primitive.ObjectID, match map[string]any, exclude primitive.ObjectID) (bool, error) {
	defer r.db.lock(ctx)()
	c, err := r.load(theater)
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, item := range c.Items {
		if item.EntryID() == exclude {
			continue
		}
		ok, err := store.MatchFields(item, match)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type products struct {
	*containers[models.Product]
}

func (r *products) DecrementStock(ctx context.Context, theater, productID primitive.ObjectID, qty int) error {
	defer r.db.lock(ctx)()
	c, err := r.load(theater)
	if err != nil {
		return err
	}
	i := r.index(c, productID)
	if i < 0 {
		return store.ErrNotFound
	}
	if c.Items[i].Inventory.CurrentStock < qty {
		return store.ErrInsufficientStock
	}
	c.Items[i].Inventory.CurrentStock -= qty
	c.Items[i].UpdatedAt = r.db.now()
	return r.save(c)
}
