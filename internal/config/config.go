package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StockMemory   = "memory"
	StockPostgres = "postgres"
)

// Config is shared by cartd and cartctl. Values resolve in the order
// defaults, then YAML file, then environment.
type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	LogJSON         bool
	AccessLog       bool

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StockBackend       string
	PostgresHost       string
	PostgresPort       int
	PostgresUser       string
	PostgresPassword   string
	PostgresDB         string
	PostgresMigrations string
	// StockSeed preloads the memory backend.
	StockSeed []SeedProduct

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// cartctl
	APIURL   string
	DeviceDB string
	// DeviceID switches device storage from the DeviceDB file to Redis.
	DeviceID    string
	SyncDelay   time.Duration
	CallTimeout time.Duration
}

type SeedProduct struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Total    int    `yaml:"total"`
	Reserved int    `yaml:"reserved"`
	// Track defaults to true when omitted.
	Track *bool `yaml:"track"`
}

func (p SeedProduct) Tracked() bool {
	return p.Track == nil || *p.Track
}

type configFile struct {
	Server struct {
		HTTPPort        string `yaml:"http_port"`
		RequestTimeout  string `yaml:"request_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		AccessLog       *bool  `yaml:"access_log"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		JSON  *bool  `yaml:"json"`
	} `yaml:"log"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Stock struct {
		Backend  string `yaml:"backend"`
		Postgres struct {
			Host       string `yaml:"host"`
			Port       int    `yaml:"port"`
			User       string `yaml:"user"`
			Password   string `yaml:"password"`
			DB         string `yaml:"db"`
			Migrations string `yaml:"migrations"`
		} `yaml:"postgres"`
		Seed []SeedProduct `yaml:"seed"`
	} `yaml:"stock"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`
	Client struct {
		APIURL      string `yaml:"api_url"`
		DeviceDB    string `yaml:"device_db"`
		DeviceID    string `yaml:"device_id"`
		SyncDelay   string `yaml:"sync_delay"`
		CallTimeout string `yaml:"call_timeout"`
	} `yaml:"client"`
}

func defaults() Config {
	return Config{
		HTTPPort:           "8080",
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		LogLevel:           "info",
		LogJSON:            true,
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "cartdb",
		RedisAddr:          "localhost:6379",
		StockBackend:       StockMemory,
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "postgres",
		PostgresDB:         "catalog",
		PostgresMigrations: "internal/inventory/migrations",
		KafkaTopic:         "checkout-outbox",
		KafkaGroupID:       "cart-sync",
		APIURL:             "http://localhost:8080",
		DeviceDB:           "cart.db",
		SyncDelay:          time.Second,
		CallTimeout:        10 * time.Second,
	}
}

// Load reads path if it exists and applies environment overrides. An empty
// path skips the file.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.RequestTimeout = envDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogJSON = envBool("LOG_JSON", cfg.LogJSON)
	cfg.AccessLog = envBool("ACCESS_LOG", cfg.AccessLog)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("REDIS_DB", cfg.RedisDB)
	cfg.StockBackend = strings.ToLower(getEnv("STOCK_BACKEND", cfg.StockBackend))
	cfg.PostgresHost = getEnv("POSTGRES_HOST", cfg.PostgresHost)
	cfg.PostgresPort = envInt("POSTGRES_PORT", cfg.PostgresPort)
	cfg.PostgresUser = getEnv("POSTGRES_USER", cfg.PostgresUser)
	cfg.PostgresPassword = getEnv("POSTGRES_PASSWORD", cfg.PostgresPassword)
	cfg.PostgresDB = getEnv("POSTGRES_DB", cfg.PostgresDB)
	cfg.PostgresMigrations = getEnv("POSTGRES_MIGRATIONS", cfg.PostgresMigrations)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaGroupID = getEnv("KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.APIURL = getEnv("CART_API_URL", cfg.APIURL)
	cfg.DeviceDB = getEnv("CART_DEVICE_DB", cfg.DeviceDB)
	cfg.DeviceID = getEnv("CART_DEVICE_ID", cfg.DeviceID)
	cfg.SyncDelay = envDuration("CART_SYNC_DELAY", cfg.SyncDelay)
	cfg.CallTimeout = envDuration("CART_CALL_TIMEOUT", cfg.CallTimeout)

	switch cfg.StockBackend {
	case StockMemory, StockPostgres:
	default:
		return Config{}, fmt.Errorf("unknown stock backend %q", cfg.StockBackend)
	}
	if cfg.SyncDelay <= 0 {
		return Config{}, fmt.Errorf("sync delay must be positive, got %s", cfg.SyncDelay)
	}

	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.HTTPPort, f.Server.HTTPPort)
	setString(&cfg.LogLevel, f.Log.Level)
	setString(&cfg.MongoURI, f.Mongo.URI)
	setString(&cfg.MongoDatabase, f.Mongo.Database)
	setString(&cfg.RedisAddr, f.Redis.Addr)
	setString(&cfg.RedisPassword, f.Redis.Password)
	setString(&cfg.StockBackend, f.Stock.Backend)
	setString(&cfg.PostgresHost, f.Stock.Postgres.Host)
	setString(&cfg.PostgresUser, f.Stock.Postgres.User)
	setString(&cfg.PostgresPassword, f.Stock.Postgres.Password)
	setString(&cfg.PostgresDB, f.Stock.Postgres.DB)
	setString(&cfg.PostgresMigrations, f.Stock.Postgres.Migrations)
	setString(&cfg.KafkaTopic, f.Kafka.Topic)
	setString(&cfg.KafkaGroupID, f.Kafka.GroupID)
	setString(&cfg.APIURL, f.Client.APIURL)
	setString(&cfg.DeviceDB, f.Client.DeviceDB)
	setString(&cfg.DeviceID, f.Client.DeviceID)

	if f.Server.AccessLog != nil {
		cfg.AccessLog = *f.Server.AccessLog
	}
	if f.Log.JSON != nil {
		cfg.LogJSON = *f.Log.JSON
	}
	if f.Redis.DB > 0 {
		cfg.RedisDB = f.Redis.DB
	}
	if f.Stock.Postgres.Port > 0 {
		cfg.PostgresPort = f.Stock.Postgres.Port
	}
	if len(f.Stock.Seed) > 0 {
		cfg.StockSeed = f.Stock.Seed
	}
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}

	durations := []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&cfg.RequestTimeout, f.Server.RequestTimeout, "server.request_timeout"},
		{&cfg.ShutdownTimeout, f.Server.ShutdownTimeout, "server.shutdown_timeout"},
		{&cfg.SyncDelay, f.Client.SyncDelay, "client.sync_delay"},
		{&cfg.CallTimeout, f.Client.CallTimeout, "client.call_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
