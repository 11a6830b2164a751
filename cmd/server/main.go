package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lemonade/internal/cache"
	"lemonade/internal/config"
	"lemonade/internal/database"
	"lemonade/internal/handlers"
	"lemonade/internal/logger"
	"lemonade/internal/middleware"
	"lemonade/internal/repository"
	"lemonade/internal/routes"
	"lemonade/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	config.Load(logger.Must(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")))
	cfg := config.ServerFromEnv()

	log := logger.Must(cfg.Env, cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, redisClient, closeAll := connect(ctx, cfg, log)
	defer closeAll()

	h := handlers.New(deps)
	limits := routes.Limits{API: cfg.APIRateLimit, Orders: cfg.OrderRateLimit, Window: cfg.RateWindow}
	if redisClient != nil {
		limits.Counter = cache.NewRedis(redisClient)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log.Named("http")), middleware.CORS(cfg.AllowedOrigins))
	routes.RegisterRoutes(r, h, cfg.AdminKey, limits, log)

	if cfg.AdminKey == "" {
		log.Warn("⚠️ ADMIN_API_KEY not set, admin endpoints are open")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("🚀 Lemonade API listening", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ shutdown", zap.Error(err))
	}
	h.Wait()
}

// connect builds the handler dependencies. In memory mode Redis is
// optional and only enables caching, rate limits and live updates.
func connect(ctx context.Context, cfg config.Server, log *zap.Logger) (handlers.Deps, *redis.Client, func()) {
	deps := handlers.Deps{
		PaymentQR: services.PaymentQR{Till: cfg.MpesaTill, ShopName: cfg.ShopName},
		Logger:    log.Named("api"),
	}

	var redisClient *redis.Client
	closeAll := func() {}

	switch cfg.StoreBackend {
	case "memory":
		deps.Store = repository.NewMemory()
		client, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("⚠️ Redis unavailable, running without cache", zap.Error(err))
		} else {
			redisClient = client
			closeAll = func() { _ = client.Close() }
		}
		log.Info("🧪 using in-memory store")

	default:
		conns, err := database.Connect(ctx, cfg, log)
		if err != nil {
			log.Fatal("❌ database connection failed", zap.Error(err))
		}
		redisClient = conns.Redis
		closeAll = func() { _ = conns.Close() }
		deps.Store = repository.NewScylla(conns.Scylla, cache.NewRedis(conns.Redis))

		if conns.Elastic != nil {
			deps.Search = services.NewProductSearch(conns.Elastic, cfg.ProductIndex, log.Named("search"))
		}
		if conns.MinIO != nil {
			deps.Images = services.NewImageStore(conns.MinIO, cfg.Minio)
		}
	}

	if redisClient != nil {
		deps.Store.Products = cache.NewProducts(deps.Store.Products, cache.NewRedis(redisClient), cfg.ProductCacheTTL, log.Named("cache"))
		events := services.NewOrderEvents(redisClient, log.Named("events"))
		deps.Events = events
		deps.Stream = events
	}
	if cfg.MailEnabled() {
		deps.Mailer = services.NewMailer(cfg.SMTP, cfg.ShopName, deps.PaymentQR, log.Named("mail"))
	}
	return deps, redisClient, closeAll
}
