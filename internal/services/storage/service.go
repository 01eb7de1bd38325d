package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/phambaophuc/product-studio/internal/config"
	"github.com/redis/go-redis/v9"
)

const CacheKeyPrefix = "edit_cache:"

// StorageService caches remote edit results in Redis.
type StorageService struct {
	redisClient   *redis.Client
	cacheDuration time.Duration
}

func NewStorageService(ctx context.Context, cfg config.RedisConfig) (*StorageService, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is not configured")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	cacheDuration := cfg.CacheDuration
	if cacheDuration <= 0 {
		cacheDuration = 24 * time.Hour
	}

	return &StorageService{
		redisClient:   redisClient,
		cacheDuration: cacheDuration,
	}, nil
}

func (s *StorageService) Close() error {
	return s.redisClient.Close()
}
