package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	api "github.com/mockme/mockme/internal/api/http"
	auth "github.com/mockme/mockme/internal/auth/middleware"
	"github.com/mockme/mockme/internal/config"
	"github.com/mockme/mockme/internal/db"
	"github.com/mockme/mockme/internal/exam"
	"github.com/mockme/mockme/internal/logging"
	"github.com/mockme/mockme/internal/metrics"
	syncx "github.com/mockme/mockme/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	log, err := logging.New(cfg.LogLevel, cfg.LogConsole)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	store, outbox, ready, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	var publishers []syncx.Publisher
	if outbox != nil {
		publishers = append(publishers, outbox)
	}

	// --- Redis fan-out (optional) ---
	// SQL stores feed Redis from the event log; the others publish directly.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, events will only be logged locally", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		redisPub := syncx.NewRedisPublisher(rdb, cfg.RedisChannel)
		if outbox != nil {
			relay := syncx.NewRelay(outbox, redisPub, log.Named("relay"))
			// history is not replayed on boot
			if seq, err := outbox.LastSeq(ctx); err == nil {
				relay.StartAfter(seq)
			}
			go relay.Run(ctx, 2*time.Second)
		} else {
			publishers = append(publishers, redisPub)
		}
	}

	m := metrics.New()
	svc := exam.NewService(store,
		exam.WithPublisher(syncx.Multi(publishers)),
		exam.WithMetrics(m),
		exam.WithLogger(log.Named("exam")),
	)
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, svc, authSvc, auth.Credentials{
		AdminUser:     cfg.AdminUser,
		AdminPassHash: cfg.AdminPassHash,
		DevStudents:   cfg.EnableDevLogin,
	}, log.Named("http"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	r.Handle("/metrics", m.Handler())

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	log.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.String("store", cfg.StoreDriver),
	)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}
}

// openStore builds the configured Store, its event log when it has one, a
// readiness probe and a close func.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (exam.Store, *syncx.EventRepo, func(context.Context) error, func(), error) {
	noop := func() {}
	always := func(context.Context) error { return nil }

	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		return exam.NewInMemoryStore(), nil, always, noop, nil

	case "sqlite", "postgres":
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		dbh, err := db.Open(openCtx, db.Driver(cfg.StoreDriver), cfg.DBDSN)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return exam.NewSQLStore(dbh, cfg.StoreDriver), syncx.NewEventRepo(dbh), dbh.PingContext, func() { dbh.Close() }, nil

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, nil, err
		}
		ms := exam.NewMongoStore(client, cfg.MongoDB)
		if err := ms.EnsureIndexes(pingCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, nil, err
		}
		ready := func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return ms, nil, ready, func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, nil, nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
}
