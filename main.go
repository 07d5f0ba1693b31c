package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"canteen/internal/config"
	"canteen/internal/database"
	"canteen/internal/events"
	"canteen/internal/logger"
	"canteen/internal/store"
	"canteen/internal/store/memory"
)

func main() {
	config.Load()
	env := config.AppEnv

	if err := logger.Init(logger.Config{Level: env.LogLevel, Format: env.LogFormat, Dir: env.LogDir}); err != nil {
		logger.For("main").Fatal(err)
	}
	log := logger.For("main")

	if env.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	st, client := openStore(env)
	if client != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}()
	}

	rdb := config.NewRedisClient(env.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := openPublisher(ctx, env.Events)
	defer publisher.Close()

	r := newRouter(routerDeps{
		store:     st,
		redis:     rdb,
		publisher: publisher,
		env:       env,
	})

	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("listening on :%s (store=%s events=%s)", env.Port, env.StoreDriver, env.Events.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// openStore picks the storage driver. The mongo client is returned so main
// can disconnect it.
func openStore(env config.Config) (*store.Store, *mongo.Client) {
	log := logger.For("main")

	if env.StoreDriver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	client, err := database.Connect(env.MongoURI)
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(env.DBName)
	log.Info("MongoDB connected to: ", db.Name())

	if err := database.EnsureContainerIndexes(db); err != nil {
		log.WithError(err).Warn("container index warning")
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.WithError(err).Warn("user index warning")
	}
	if err := database.EnsureTokenIndexes(db); err != nil {
		log.WithError(err).Warn("token index warning")
	}
	return database.NewStore(db), client
}

// openPublisher connects the order event broker and starts the consumer
// that writes the order event log.
func openPublisher(ctx context.Context, cfg config.EventsConfig) events.Publisher {
	log := logger.For("events")
	sink := events.NewLogSink(cfg.LogPath)

	switch cfg.Driver {
	case "amqp":
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.WithError(err).Warn("AMQP unavailable, order events disabled")
			return events.Noop{}
		}
		go events.ConsumeAMQP(ctx, cfg.AMQPURL, sink)
		return pub
	case "nats":
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, order events disabled")
			return events.Noop{}
		}
		go func() {
			if err := events.ConsumeNATS(ctx, cfg.NATSURL, sink); err != nil {
				log.WithError(err).Error("order consumer stopped")
			}
		}()
		return pub
	default:
		return events.Noop{}
	}
}
