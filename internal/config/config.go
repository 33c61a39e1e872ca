// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
)

type Config struct {
	Server          ServerConfig
	Log             LogConfig
	Storage         StorageConfig
	RedirectLimiter RedirectLimiterConfig
	Shortener       ShortenerConfig
}

type ServerConfig struct {
	Port            string
	BaseURL         string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	Type     string
	Redis    RedisConfig
	Postgres PostgresConfig
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	MaxClicks int64
}

type PostgresConfig struct {
	DSN string
}

type RedirectLimiterConfig struct {
	Rule          domain.RedirectLimitRule
	Shards        int
	EvictInterval time.Duration
}

type ShortenerConfig struct {
	HashLength          int
	MaxHashAttempts     int
	CheckReachability   bool
	ReachabilityTimeout time.Duration
	BlockedHosts        []string
}

// Load lê o arquivo .env opcional e depois as variáveis de ambiente do processo.
func Load() (Config, error) {
	_ = godotenv.Load()

	server, err := buildServerConfig()
	if err != nil {
		return Config{}, err
	}

	storage, err := buildStorageConfig()
	if err != nil {
		return Config{}, err
	}

	limiter, err := buildRedirectLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	shortener, err := buildShortenerConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server:          server,
		Log:             LogConfig{Level: strings.ToLower(getEnv("LOG_LEVEL", "info"))},
		Storage:         storage,
		RedirectLimiter: limiter,
		Shortener:       shortener,
	}, nil
}

func buildServerConfig() (ServerConfig, error) {
	port := getEnv("SERVER_PORT", "8080")
	shutdownSeconds, err := getPositiveInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Port:            port,
		BaseURL:         strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		ShutdownTimeout: time.Duration(shutdownSeconds) * time.Second,
	}, nil
}

func buildStorageConfig() (StorageConfig, error) {
	storageType := strings.ToLower(getEnv("STORAGE_TYPE", "memory"))
	switch storageType {
	case "memory", "redis", "postgres":
	default:
		return StorageConfig{}, fmt.Errorf("unsupported STORAGE_TYPE: %s", storageType)
	}

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return StorageConfig{}, err
	}

	postgresConfig := PostgresConfig{DSN: strings.TrimSpace(os.Getenv("POSTGRES_DSN"))}
	if storageType == "postgres" && postgresConfig.DSN == "" {
		return StorageConfig{}, fmt.Errorf("POSTGRES_DSN is required when STORAGE_TYPE=postgres")
	}

	return StorageConfig{
		Type:     storageType,
		Redis:    redisConfig,
		Postgres: postgresConfig,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	maxClicks, err := getPositiveInt("REDIS_MAX_CLICKS", 10000)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Host:      host,
		Port:      port,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        db,
		MaxClicks: int64(maxClicks),
	}, nil
}

func buildRedirectLimiterConfig() (RedirectLimiterConfig, error) {
	maxRedirects, err := getPositiveInt("REDIRECT_LIMIT_MAX", 10)
	if err != nil {
		return RedirectLimiterConfig{}, err
	}
	windowSeconds, err := getPositiveInt("REDIRECT_LIMIT_WINDOW_SECONDS", 60)
	if err != nil {
		return RedirectLimiterConfig{}, err
	}
	shards, err := getPositiveInt("REDIRECT_LIMIT_SHARDS", 32)
	if err != nil {
		return RedirectLimiterConfig{}, err
	}
	evictSeconds, err := strconv.Atoi(getEnv("REDIRECT_LIMIT_EVICT_INTERVAL_SECONDS", "0"))
	if err != nil || evictSeconds < 0 {
		return RedirectLimiterConfig{}, fmt.Errorf("invalid REDIRECT_LIMIT_EVICT_INTERVAL_SECONDS: %q", os.Getenv("REDIRECT_LIMIT_EVICT_INTERVAL_SECONDS"))
	}

	return RedirectLimiterConfig{
		Rule: domain.RedirectLimitRule{
			MaxRedirects: maxRedirects,
			Window:       time.Duration(windowSeconds) * time.Second,
		},
		Shards:        shards,
		EvictInterval: time.Duration(evictSeconds) * time.Second,
	}, nil
}

func buildShortenerConfig() (ShortenerConfig, error) {
	hashLength, err := getPositiveInt("HASH_LENGTH", 8)
	if err != nil {
		return ShortenerConfig{}, err
	}
	if hashLength > 11 {
		return ShortenerConfig{}, fmt.Errorf("invalid HASH_LENGTH: %d is longer than 11", hashLength)
	}
	maxAttempts, err := getPositiveInt("HASH_MAX_ATTEMPTS", 5)
	if err != nil {
		return ShortenerConfig{}, err
	}
	checkReachability, err := strconv.ParseBool(getEnv("CHECK_REACHABILITY", "false"))
	if err != nil {
		return ShortenerConfig{}, fmt.Errorf("invalid CHECK_REACHABILITY: %w", err)
	}
	timeoutSeconds, err := getPositiveInt("REACHABILITY_TIMEOUT_SECONDS", 3)
	if err != nil {
		return ShortenerConfig{}, err
	}

	return ShortenerConfig{
		HashLength:          hashLength,
		MaxHashAttempts:     maxAttempts,
		CheckReachability:   checkReachability,
		ReachabilityTimeout: time.Duration(timeoutSeconds) * time.Second,
		BlockedHosts:        splitList(os.Getenv("BLOCKED_HOSTS")),
	}, nil
}

func getPositiveInt(key string, fallback int) (int, error) {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, value)
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
