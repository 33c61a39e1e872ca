package main

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/JeanGrijp/url-shortener/internal/adapters/storage/memory"
	postgresstorage "github.com/JeanGrijp/url-shortener/internal/adapters/storage/postgres"
	redisstorage "github.com/JeanGrijp/url-shortener/internal/adapters/storage/redis"
	"github.com/JeanGrijp/url-shortener/internal/config"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

func initStorage(ctx context.Context, cfg config.StorageConfig, logger log.Logger) (ports.URLRepository, ports.ClickRepository, func(), error) {
	switch cfg.Type {
	case "memory":
		return memory.NewURLStorage(), memory.NewClickStorage(), func() {}, nil
	case "redis":
		storage, err := redisstorage.New(redisstorage.Config{
			Addr:      fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			MaxClicks: cfg.Redis.MaxClicks,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return storage, storage, func() {
			if err := storage.Close(); err != nil {
				_ = level.Warn(logger).Log("msg", "failed to close redis storage", "err", err)
			}
		}, nil
	case "postgres":
		storage, err := postgresstorage.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return storage, storage, func() {
			if err := storage.Close(); err != nil {
				_ = level.Warn(logger).Log("msg", "failed to close postgres storage", "err", err)
			}
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
