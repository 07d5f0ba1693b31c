package memory

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/store"
)

type orders struct {
	db *DB
}

func (r *orders) Append(ctx context.Context, theater primitive.ObjectID, order models.Order) (models.Order, error) {
	defer r.db.lock(ctx)()
	var c models.OrderContainer
	found, err := r.db.get(store.OrdersSpec.Collection, theater.Hex(), &c)
	if err != nil {
		return order, err
	}
	now := r.db.now()
	if !found {
		c = models.OrderContainer{ID: primitive.NewObjectID(), Theater: theater, CreatedAt: now}
	}
	c.OrderList = append(c.OrderList, order)
	c.Metadata.TotalOrders++
	c.Metadata.TotalRevenue += order.Pricing.Total
	c.Metadata.LastOrderAt = now
	c.UpdatedAt = now
	if err := r.db.put(store.OrdersSpec.Collection, theater.Hex(), c); err != nil {
		return order, err
	}

	var stored models.OrderContainer
	if _, err := r.db.get(store.OrdersSpec.Collection, theater.Hex(), &stored); err != nil {
		return order, err
	}
	return stored.OrderList[len(stored.OrderList)-1], nil
}

func (r *orders) List(ctx context.Context, theater primitive.ObjectID) ([]models.Order, error) {
	defer r.db.lock(ctx)()
	var c models.OrderContainer
	if _, err := r.db.get(store.OrdersSpec.Collection, theater.Hex(), &c); err != nil {
		return nil, err
	}
	if c.OrderList == nil {
		return []models.Order{}, nil
	}
	return c.OrderList, nil
}

func (r *orders) find(orderID primitive.ObjectID) (models.OrderContainer, int, error) {
	for _, key := range r.db.keys(store.OrdersSpec.Collection) {
		var c models.OrderContainer
		if _, err := r.db.get(store.OrdersSpec.Collection, key, &c); err != nil {
			return c, -1, err
		}
		for i, o := range c.OrderList {
			if o.ID == orderID {
				return c, i, nil
			}
		}
	}
	return models.OrderContainer{}, -1, store.ErrNotFound
}

func (r *orders) Find(ctx context.Context, orderID primitive.ObjectID) (primitive.ObjectID, models.Order, error) {
	defer r.db.lock(ctx)()
	c, i, err := r.find(orderID)
	if err != nil {
		return primitive.NilObjectID, models.Order{}, err
	}
	return c.Theater, c.OrderList[i], nil
}

func (r *orders) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status string, at time.Time) (models.Order, error) {
	defer r.db.lock(ctx)()
	c, i, err := r.find(orderID)
	if err != nil {
		return models.Order{}, err
	}
	c.OrderList[i].Status = status
	c.OrderList[i].UpdatedAt = at
	c.UpdatedAt = at
	if err := r.db.put(store.OrdersSpec.Collection, c.Theater.Hex(), c); err != nil {
		return models.Order{}, err
	}
	return c.OrderList[i], nil
}

type counters struct {
	db *DB
}

func (r *counters) Next(ctx context.Context, key string, theater primitive.ObjectID, day string) (int64, error) {
	defer r.db.lock(ctx)()
	c := models.Counter{ID: key, Theater: theater, Day: day}
	if _, err := r.db.get("counters", key, &c); err != nil {
		return 0, err
	}
	c.Seq++
	if err := r.db.put("counters", key, c); err != nil {
		return 0, err
	}
	return c.Seq, nil
}

type users struct {
	db *DB
}

func (r *users) Create(ctx context.Context, user models.User) (models.User, error) {
	defer r.db.lock(ctx)()
	for _, key := range r.db.keys("users") {
		var existing models.User
		if _, err := r.db.get("users", key, &existing); err != nil {
			return user, err
		}
		if existing.Email == user.Email || (user.Username != "" && existing.Username == user.Username) {
			return user, store.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if err := r.db.put("users", user.ID.Hex(), user); err != nil {
		return user, err
	}
	return user, nil
}

func (r *users) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	defer r.db.lock(ctx)()
	var u models.User
	found, err := r.db.get("users", id.Hex(), &u)
	if err != nil {
		return u, err
	}
	if !found {
		return u, store.ErrNotFound
	}
	return u, nil
}

func (r *users) FindByLogin(ctx context.Context, login string) (models.User, error) {
	defer r.db.lock(ctx)()
	login = strings.ToLower(strings.TrimSpace(login))
	for _, key := range r.db.keys("users") {
		var u models.User
		if _, err := r.db.get("users", key, &u); err != nil {
			return u, err
		}
		if u.Email == login || strings.ToLower(u.Username) == login {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (r *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer r.db.lock(ctx)()
	for _, key := range r.db.keys("users") {
		raw, _ := r.db.raw("users", key)
		if v, err := raw.LookupErr("email"); err == nil && v.StringValue() == email {
			return true, nil
		}
	}
	return false, nil
}

type tokens struct {
	db *DB
}

func (r *tokens) Insert(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	defer r.db.lock(ctx)()
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	return token, r.db.put("refresh_tokens", token.ID.Hex(), token)
}

func (r *tokens) findByHash(hash string) (models.RefreshToken, bool, error) {
	for _, key := range r.db.keys("refresh_tokens") {
		var t models.RefreshToken
		if _, err := r.db.get("refresh_tokens", key, &t); err != nil {
			return t, false, err
		}
		if t.TokenHash == hash && !t.Revoked {
			return t, true, nil
		}
	}
	return models.RefreshToken{}, false, nil
}

func (r *tokens) FindActive(ctx context.Context, hash string) (models.RefreshToken, error) {
	defer r.db.lock(ctx)()
	t, found, err := r.findByHash(hash)
	if err != nil {
		return t, err
	}
	if !found {
		return t, store.ErrNotFound
	}
	return t, nil
}

func (r *tokens) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	defer r.db.lock(ctx)()
	var t models.RefreshToken
	found, err := r.db.get("refresh_tokens", id.Hex(), &t)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	t.Revoked = true
	t.ReplacedByToken = replacedBy
	return r.db.put("refresh_tokens", id.Hex(), t)
}

func (r *tokens) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	defer r.db.lock(ctx)()
	t, found, err := r.findByHash(hash)
	if err != nil || !found {
		return false, err
	}
	t.Revoked = true
	return true, r.db.put("refresh_tokens", t.ID.Hex(), t)
}

type settings struct {
	db *DB
}

func (r *settings) General(ctx context.Context) (models.GeneralSettings, error) {
	defer r.db.lock(ctx)()
	var s models.GeneralSettings
	found, err := r.db.get("settings", models.GeneralSettingsID, &s)
	if err != nil {
		return s, err
	}
	if !found {
		return s, store.ErrNotFound
	}
	return s, nil
}

func (r *settings) SaveGeneral(ctx context.Context, s models.GeneralSettings) error {
	defer r.db.lock(ctx)()
	s.ID = models.GeneralSettingsID
	return r.db.put("settings", models.GeneralSettingsID, s)
}
