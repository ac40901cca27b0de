package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// NewClient builds a client for cfg without touching the package global.
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	c := NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		_ = c.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client = c
	logger.Info("Redis connection established successfully", nil)
	return nil
}

// SetClient replaces the package client. Used by tests.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		err := client.Close()
		client = nil
		return err
	}
	return nil
}

// BlacklistToken revokes an access token until it would have expired anyway.
func BlacklistToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if client == nil {
		return nil
	}
	logger.Debug("Adding token to blacklist", map[string]interface{}{
		"expiry": expiry.String(),
	})

	key := fmt.Sprintf("blacklist:%s", tokenID)
	if err := client.Set(ctx, key, "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}

	logger.Debug("Token successfully blacklisted", nil)
	return nil
}

// IsTokenBlacklisted reports whether tokenID was revoked. Without a client
// nothing is ever revoked.
func IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if client == nil {
		return false, nil
	}
	key := fmt.Sprintf("blacklist:%s", tokenID)
	val, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, err
	}

	return val == "revoked", nil
}
