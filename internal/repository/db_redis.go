// Package repository contains the storage layer for the Stockwatch API
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nsvirk/stockwatchapi/internal/config"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects to Redis and verifies the connection with a ping.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
	})
	// Check Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := redisClient.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	return redisClient, nil
}
