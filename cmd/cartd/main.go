package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	c "github.com/brandonecarr/amosmiller-sub002/internal/cache"
	"github.com/brandonecarr/amosmiller-sub002/internal/config"
	cartapi "github.com/brandonecarr/amosmiller-sub002/internal/http"
	"github.com/brandonecarr/amosmiller-sub002/internal/inventory"
	"github.com/brandonecarr/amosmiller-sub002/internal/poller"
	"github.com/brandonecarr/amosmiller-sub002/internal/repository"
	s "github.com/brandonecarr/amosmiller-sub002/internal/service"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", getEnv("CART_CONFIG", "cart.yaml"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg)

	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	repo := repository.NewMongoRepository(mongoDB)
	if err := repo.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	log.WithField("database", cfg.MongoDatabase).Info("connected to MongoDB")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Info("redis ping succeeded")

	stock, closeStock, err := openStock(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open stock backend: %v", err)
	}
	defer closeStock()

	service := s.NewCartService(repo, c.NewRedisCache(redisClient))

	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(service, poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})
		defer p.Close()
		go p.Run(pollCtx)
		log.WithField("topic", cfg.KafkaTopic).Info("checkout poller started")
	} else {
		log.Warn("no kafka brokers configured, carts will not be cleared on checkout")
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: cartapi.NewRouter(cartapi.RouterConfig{
			Records:        service,
			Stock:          inventory.NewChecker(stock),
			RequestTimeout: cfg.RequestTimeout,
			AccessLog:      cfg.AccessLog,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("cart service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down cart service...")
	stopPoller()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if err := repository.Disconnect(shutdownCtx, mongoDB); err != nil {
		log.WithError(err).Warn("mongo disconnect failed")
	}
	log.Info("cart service stopped")
}

func openStock(ctx context.Context, cfg config.Config) (inventory.StockStore, func(), error) {
	if cfg.StockBackend == config.StockPostgres {
		creds := &inventory.Credentials{
			Host:              cfg.PostgresHost,
			Port:              cfg.PostgresPort,
			User:              cfg.PostgresUser,
			Password:          cfg.PostgresPassword,
			DBName:            cfg.PostgresDB,
			MigrationsDirPath: cfg.PostgresMigrations,
		}
		store, err := inventory.NewPostgresStore(creds)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(creds); err != nil {
			store.Close()
			return nil, nil, err
		}
		for _, p := range cfg.StockSeed {
			if err := store.SetStock(ctx, seedInfo(p)); err != nil {
				store.Close()
				return nil, nil, err
			}
		}
		return store, func() { store.Close() }, nil
	}

	store := inventory.NewMemoryStore()
	for _, p := range cfg.StockSeed {
		store.SetStock(seedInfo(p))
	}
	log.WithField("products", len(cfg.StockSeed)).Info("using in-memory stock")
	return store, func() {}, nil
}

func seedInfo(p config.SeedProduct) inventory.StockInfo {
	return inventory.StockInfo{
		ProductID:      p.ID,
		Name:           p.Name,
		Total:          p.Total,
		Reserved:       p.Reserved,
		TrackInventory: p.Tracked(),
	}
}

func setupLogging(cfg config.Config) {
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
