package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"canteen/internal/logger"
	"canteen/internal/store"
)

// EnsureContainerIndexes gives every container collection a unique theater
// index so a theater never ends up with two containers of one type.
func EnsureContainerIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logger.For("database")
	for _, spec := range store.ContainerSpecs {
		theaterIndex := mongo.IndexModel{
			Keys: bson.D{{Key: "theater", Value: 1}},
			Options: options.Index().
				SetName("theater_unique").
				SetUnique(true),
		}
		log.Debugf("EnsureContainerIndexes: creating theater_unique on %s", spec.Collection)
		if _, err := db.Collection(spec.Collection).Indexes().CreateOne(ctx, theaterIndex); err != nil {
			log.WithError(err).Errorf("EnsureContainerIndexes: %s theater index error", spec.Collection)
			return err
		}
	}

	orderIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "orderList._id", Value: 1}},
		Options: options.Index().SetName("orderList_id_index"),
	}
	if _, err := db.Collection(store.OrdersSpec.Collection).Indexes().CreateOne(ctx, orderIDIndex); err != nil {
		log.WithError(err).Error("EnsureContainerIndexes: orderList._id index error")
		return err
	}
	log.Info("EnsureContainerIndexes: container indexes ready")
	return nil
}

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logger.For("database")
	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}
	usernameIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetName("username_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"username": bson.M{"$type": "string", "$gt": ""},
			}),
	}

	if _, err := indexes.CreateMany(ctx, []mongo.IndexModel{emailIndex, usernameIndex}); err != nil {
		log.WithError(err).Error("EnsureUserIndexes: user index error")
		return err
	}
	log.Info("EnsureUserIndexes: email_unique and username_unique ready")
	return nil
}

func EnsureTokenIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logger.For("database")
	hashIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().SetName("tokenHash_index"),
	}
	expiryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
	}
	if _, err := db.Collection("refresh_tokens").Indexes().CreateMany(ctx, []mongo.IndexModel{hashIndex, expiryIndex}); err != nil {
		log.WithError(err).Error("EnsureTokenIndexes: refresh token index error")
		return err
	}
	log.Info("EnsureTokenIndexes: refresh token indexes ready")
	return nil
}
