package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cakebox/storefront/internal/cache"
	"github.com/cakebox/storefront/internal/cartref"
	"github.com/cakebox/storefront/internal/checkout"
	"github.com/cakebox/storefront/internal/commerce"
	"github.com/cakebox/storefront/internal/orders"
	"github.com/cakebox/storefront/internal/payment"
	"github.com/cakebox/storefront/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort        string
	CommerceAPIURL  string
	CommerceAPIKey  string
	RedisAddr       string
	MongoURI        string
	MongoDatabase   string
	KafkaBrokers    []string
	WebhookSecret   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DB orders.Credentials
}

func loadConfig() *Config {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		dbPort = 5432
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		CommerceAPIURL:  getEnv("COMMERCE_API_URL", "http://localhost:9000"),
		CommerceAPIKey:  getEnv("COMMERCE_API_KEY", ""),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "storefront"),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DB: orders.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "storefront"),
			Password:          getEnv("DB_PASSWORD", "storefront"),
			DBName:            getEnv("DB_NAME", "storefront"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "internal/orders/migrations"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET is not set, webhook requests will be rejected")
	}

	backend := commerce.NewHTTPClient(cfg.CommerceAPIURL, cfg.CommerceAPIKey, cfg.RequestTimeout)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	snapshots := cache.NewRedisCache(redisClient)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStartup()

	mongoDB, err := cartref.ConnectMongoDB(startupCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	bindings := cartref.NewMongoStore(mongoDB)

	orderRepo, err := orders.NewRepository(&cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Postgres")
	}
	defer orderRepo.Close()

	if err := orderRepo.RunMigrations(&cfg.DB); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	provider := payment.SystemProvider{}
	checkoutService := checkout.NewService(backend, provider, orderRepo, snapshots, log)

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	poller := orders.NewOutboxPoller(orderRepo, log, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	cartHandler := server.NewCartHandler(backend, bindings, snapshots, log, cfg.RequestTimeout)
	checkoutHandler := server.NewCheckoutHandler(checkoutService, log, cfg.RequestTimeout)
	webhookHandler := server.NewWebhookHandler(cfg.WebhookSecret, snapshots, log)

	router := server.NewRouter(cartHandler, checkoutHandler, webhookHandler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}
