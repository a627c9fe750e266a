package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/docs"
	"github.com/mghazyfawazh/schoolportal/internal/auth"
	"github.com/mghazyfawazh/schoolportal/internal/config"
	"github.com/mghazyfawazh/schoolportal/internal/handlers"
	"github.com/mghazyfawazh/schoolportal/internal/middleware"
	"github.com/mghazyfawazh/schoolportal/internal/records"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
	"github.com/mghazyfawazh/schoolportal/internal/schedule"
)

// @title                       School Portal API
// @version                     1.0
// @BasePath                    /v1
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        x-api-key
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg := config.LoadConfig()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfg.APIKey == "" {
		logger.Warn("API_KEY is empty; token minting and traffic beacons are disabled")
	}
	if cfg.JWTSigningKey == "" {
		logger.Fatal("JWT_SIGNING_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()
	store = repo.Instrument(store)

	h := handlers.NewHandler(handlers.Handler{
		Schedules:  schedule.NewService(store, logger.Named("schedule")),
		Results:    records.NewResults(store, logger.Named("results")),
		Complaints: records.NewComplaints(store, logger.Named("complaints")),
		Syllabus:   records.NewSyllabus(store, logger.Named("syllabus")),
		Traffic:    records.NewTraffic(store, logger.Named("traffic")),
		Tokens:     auth.NewTokens(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL),
		Log:        logger.Named("http"),
	})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger.Named("access"), "/healthz", "/metrics"),
		middleware.CORS(cfg.CORSOrigins),
		middleware.SecurityHeaders(),
	)
	if limiter := newLimiter(cfg, logger); limiter != nil {
		r.Use(middleware.RateLimit(limiter, logger.Named("ratelimit")))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.StoreBackend})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if !cfg.Production() {
		docs.SwaggerInfo.BasePath = "/v1"
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h.Register(r.Group("/v1"), cfg.APIKey)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server running", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// openStore connects the configured document store. The returned func
// releases it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, func()) {
	switch cfg.StoreBackend {
	case "mongo":
		client := connectMongo(ctx, cfg.MongoURI, logger)
		store := repo.NewMongoRepo(client.Database(cfg.DBName), repo.IndexSpec{
			schedule.Collection:          {{"class", "day"}, {"class", "date"}, {"batch"}},
			records.ResultsCollection:    {{"studentName", "subject"}, {"class", "batch"}},
			records.ComplaintsCollection: {{"class", "batch"}},
			records.SyllabusCollection:   {{"class", "batch", "subject"}},
		})
		return store, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
	case "firestore":
		if cfg.FirestoreProject == "" {
			logger.Fatal("FIRESTORE_PROJECT is required for the firestore backend")
		}
		store, err := repo.NewFirestore(ctx, cfg.FirestoreProject)
		if err != nil {
			logger.Fatal("firestore", zap.Error(err))
		}
		return store, func() { _ = store.Close() }
	case "memory", "":
		logger.Warn("using the in-memory store; data is lost on restart")
		return repo.NewMemory(), func() {}
	default:
		logger.Fatal("unknown STORE_BACKEND", zap.String("backend", cfg.StoreBackend))
		return nil, nil
	}
}

func connectMongo(ctx context.Context, uri string, logger *zap.Logger) *mongo.Client {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("mongo ping", zap.Error(err))
	}
	return client
}

func newLimiter(cfg config.Config, logger *zap.Logger) middleware.Limiter {
	if cfg.RateLimitPerMin <= 0 {
		return nil
	}
	if cfg.RateLimitBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logger.Info("rate limiting via redis", zap.String("addr", cfg.RedisAddr), zap.Int("perMinute", cfg.RateLimitPerMin))
		return middleware.NewRedisLimiter(client, cfg.RateLimitPerMin)
	}
	return middleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
}
