package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardioguard/platform/pkg/api/middleware"
	"github.com/cardioguard/platform/pkg/common/config"
	"github.com/cardioguard/platform/pkg/common/database"
	"github.com/cardioguard/platform/pkg/common/kafka"
	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/cardioguard/platform/pkg/patients"
	"github.com/cardioguard/platform/pkg/serving"
	"github.com/cardioguard/platform/pkg/serving/predictor"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to load .env")
	}
	logger.Init()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Log.WithError(err).Fatal("Invalid configuration")
	}

	engine, err := predictor.Load(cfg.ScalerPath, cfg.ModelPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load model artifacts")
	}
	logger.Log.WithFields(logrus.Fields{
		"scaler": cfg.ScalerPath,
		"model":  cfg.ModelPath,
	}).Info("Model artifacts loaded")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	store, err := database.Open(startupCtx, cfg.StoreURL, cfg.StoreDatabase)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to store")
	}

	predictionLog, patientRepo, err := openRepositories(startupCtx, store, cfg.PredictionsCollection)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to prepare store schema")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = database.OpenRedis(startupCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to Redis")
		}
		predictionLog = serving.NewCachedLog(predictionLog, serving.NewRedisCache(redisClient), cfg.HistoryCacheTTL)
		logger.Log.WithField("addr", cfg.RedisAddr).Info("History cache enabled")
	}

	var producer *kafka.Producer
	writerOpts := serving.WriterOptions{
		QueueSize:     cfg.WriterQueueSize,
		AppendTimeout: cfg.WriterAppendTimeout,
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaPredictionTopic)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to create Kafka producer")
		}
		writerOpts.Events = producer
		logger.Log.WithField("topic", cfg.KafkaPredictionTopic).Info("Prediction events enabled")
	}

	writer := serving.NewWriter(predictionLog, writerOpts)

	router := mux.NewRouter()
	serving.NewHTTPHandler(serving.NewService(engine, writer), store).Register(router)
	patients.NewHTTPHandler(patients.NewService(patientRepo)).Register(router)

	var handler http.Handler = router
	handler = middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(handler)
	handler = middleware.BodyLimit(cfg.MaxRequestBody)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(logrus.Fields{
			"host":  cfg.ServerHost,
			"port":  cfg.ServerPort,
			"store": store.Kind,
		}).Info("CardioGuard started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down CardioGuard...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := writer.Close(ctx); err != nil {
		logger.Log.WithError(err).Error("Prediction log writer did not drain")
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to close Kafka producer")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to close Redis client")
		}
	}
	if err := store.Close(ctx); err != nil {
		logger.Log.WithError(err).Error("Failed to close store")
	}

	logger.Log.Info("CardioGuard stopped")
}

// newRepositories builds the prediction log and patient registry for the
// opened backend. collection names the Mongo prediction collection.
func newRepositories(store *database.Store, collection string) (serving.PredictionLog, patients.Repository) {
	if store.Mongo != nil {
		return serving.NewMongoLog(store.Mongo, collection), patients.NewMongoRepository(store.Mongo)
	}
	return serving.NewGormLog(store.SQL), patients.NewGormRepository(store.SQL)
}

// openRepositories builds the repositories and prepares their schema.
func openRepositories(ctx context.Context, store *database.Store, collection string) (serving.PredictionLog, patients.Repository, error) {
	predictionLog, patientRepo := newRepositories(store, collection)

	switch log := predictionLog.(type) {
	case *serving.MongoLog:
		if err := log.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		logger.Log.WithField("collection", log.Collection()).Info("Prediction history collection")
	case *serving.GormLog:
		if err := log.AutoMigrate(); err != nil {
			return nil, nil, err
		}
	}
	if repo, ok := patientRepo.(*patients.GormRepository); ok {
		if err := repo.AutoMigrate(); err != nil {
			return nil, nil, err
		}
	}
	return predictionLog, patientRepo, nil
}
