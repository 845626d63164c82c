package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"furnistore/internal/catalog"
	"furnistore/internal/config"
	"furnistore/internal/logger"
	"furnistore/internal/queue"
	"furnistore/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	guard := catalog.NewGuard(cfg.CatalogDSN, cfg.AdminToken)

	// Open the primary store only when the guard accepts the DSN. A missing
	// or broken store is not fatal: reads fall back to the bundled catalog,
	// writes are rejected with an explicit error.
	var store *catalog.Store
	var db *gorm.DB
	if guard.Configured() {
		db, err = gorm.Open(sqlite.Open(guard.Path()), &gorm.Config{})
		if err != nil {
			zl.Warn("store open failed, serving fallback catalog", zap.Error(err))
		} else {
			store = catalog.NewStore(db)
			if err := store.Migrate(); err != nil {
				zl.Warn("store migrate failed, serving fallback catalog", zap.Error(err))
				store = nil
			}
		}
	} else {
		zl.Warn("catalog store not configured, serving fallback catalog")
	}

	fb, err := catalog.NewFallback()
	if err != nil {
		zl.Fatal("fallback catalog load", zap.Error(err))
	}

	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	relay := queue.NewRelay(rdb, producer, zl, cfg.MovementStream, cfg.MovementGroup, cfg.MovementConsumer)
	go relay.Run(ctx)

	if db != nil {
		consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, db, zl)
		defer consumer.Close()
		go consumer.Run(ctx)
	}

	svc := catalog.NewService(guard, store, fb, zl, catalog.ServiceOptions{
		Cache:    rdb,
		Outbox:   queue.NewOutbox(rdb, cfg.MovementStream),
		CacheTTL: cfg.CacheTTL,
	})

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	router.Setup(r, svc, rdb, cfg)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		zl.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.Bool("degraded", svc.Degraded()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		zl.Error("redis close", zap.Error(err))
	}
}
