package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/expense-tracker/backend/internal/auth"
	"github.com/ayush/expense-tracker/backend/internal/config"
	"github.com/ayush/expense-tracker/backend/internal/expense"
	"github.com/ayush/expense-tracker/backend/internal/logging"
	"github.com/ayush/expense-tracker/backend/internal/server"
	"github.com/ayush/expense-tracker/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logging.New(cfg.LogLevel, cfg.AppEnv)
	ctx := context.Background()

	var (
		users    auth.UserStore
		expenses expense.Store
	)

	// ── Primary store ────────────────────────────────────────
	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := store.NewMemoryStore()
		users, expenses = mem, mem
		log.Warn("using in-memory store; data is lost on restart")
	default:
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.WithError(err).Fatal("mongo connect")
		}
		defer mongoClient.Disconnect(ctx)
		if err := mongoClient.Ping(ctx, nil); err != nil {
			log.WithError(err).Fatal("mongo ping")
		}
		db := mongoClient.Database(cfg.MongoDB)

		expStore := store.NewMongoExpenseStore(db)
		if err := expStore.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("mongo expense indexes")
		}
		userStore := store.NewMongoUserStore(db)
		if err := userStore.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("mongo user indexes")
		}
		users, expenses = userStore, expStore
		log.WithField("db", cfg.MongoDB).Info("connected to MongoDB")
	}

	// ── PostgreSQL (optional user store) ─────────────────────
	if cfg.UsersBackend == config.BackendPostgres {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("postgres connect")
		}
		defer pgPool.Close()
		pgStore := store.NewPostgresUserStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("postgres migrate")
		}
		users = pgStore
		log.Info("users stored in PostgreSQL")
	}

	var expOpts []expense.Option

	// ── Redis (optional list cache) ──────────────────────────
	if cfg.CacheEnabled() {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Fatal("redis connect")
		}
		defer rdb.Close()
		expOpts = append(expOpts, expense.WithCache(store.NewExpenseListCache(rdb, cfg.CacheTTL, log)))
		log.WithField("ttl", cfg.CacheTTL).Info("expense list cache enabled")
	}

	// ── MinIO (optional receipts) ────────────────────────────
	if cfg.ReceiptsEnabled() {
		receipts, err := store.NewMinioReceiptStore(ctx, store.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.WithError(err).Fatal("minio connect")
		}
		expOpts = append(expOpts, expense.WithFiles(receipts))
		log.WithField("bucket", cfg.MinioBucket).Info("receipt storage enabled")
	}

	// ── Services & handlers ──────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWTSecret)
	authSvc := auth.NewService(users, auth.NewPasswordHasher(cfg.BcryptCost), tokens)
	expSvc := expense.NewService(expenses, log, expOpts...)

	router := server.NewRouter(server.Deps{
		Auth:            auth.NewHandler(authSvc, log),
		Expenses:        expense.NewHandler(expSvc, log),
		Tokens:          tokens,
		Log:             log,
		CORSOrigins:     cfg.CORSOrigins,
		ReceiptsEnabled: expSvc.ReceiptsEnabled(),
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
