package database

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"canteen/internal/models"
	"canteen/internal/store"
)

type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection("users")}
}

func (r *UserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user, store.ErrDuplicate
		}
		return user, err
	}
	return user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByLogin(ctx context.Context, login string) (models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": login},
		bson.M{"username": login},
	}})
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, store.ErrNotFound
	}
	return u, err
}

type TokenRepo struct {
	coll *mongo.Collection
}

func NewTokenRepo(db *mongo.Database) *TokenRepo {
	return &TokenRepo{coll: db.Collection("refresh_tokens")}
}

func (r *TokenRepo) Insert(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, token)
	return token, err
}

func (r *TokenRepo) FindActive(ctx context.Context, hash string) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := r.coll.FindOne(ctx, bson.M{"tokenHash": hash, "revoked": false}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return t, store.ErrNotFound
	}
	return t, err
}

func (r *TokenRepo) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	set := bson.M{"revoked": true}
	if replacedBy != nil {
		set["replacedByToken"] = *replacedBy
	}
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"tokenHash": hash, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

type SettingsRepo struct {
	coll *mongo.Collection
}

func NewSettingsRepo(db *mongo.Database) *SettingsRepo {
	return &SettingsRepo{coll: db.Collection("settings")}
}

func (r *SettingsRepo) General(ctx context.Context) (models.GeneralSettings, error) {
	var s models.GeneralSettings
	err := r.coll.FindOne(ctx, bson.M{"_id": models.GeneralSettingsID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s, store.ErrNotFound
	}
	return s, err
}

func (r *SettingsRepo) SaveGeneral(ctx context.Context, s models.GeneralSettings) error {
	s.ID = models.GeneralSettingsID
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": models.GeneralSettingsID}, s, options.Replace().SetUpsert(true))
	return err
}
