// Package service contains the service layer for the Stockwatch API
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/nsvirk/stockwatchapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

// RedisChannel carries post-refresh instrument snapshots to subscribers.
var RedisChannel = "CH:API:STOCKS:REFRESH"

// PublishService pushes refresh results to Redis. With the Postgres store it
// additionally bridges the store's NOTIFY channel to the same Redis channel,
// so out-of-process refreshes reach subscribers too.
type PublishService struct {
	redisClient *redis.Client
	pgConnStr   string
}

// NewPublishService creates a new PublishService. A nil redis client turns
// every publish into a no-op.
func NewPublishService(redisClient *redis.Client, pgConnStr string) *PublishService {
	return &PublishService{
		redisClient: redisClient,
		pgConnStr:   pgConnStr,
	}
}

// PublishSnapshot publishes one refresh cycle's full instrument set.
func (s *PublishService) PublishSnapshot(instruments []models.InstrumentModel) {
	if s.redisClient == nil {
		return
	}

	payload, err := json.Marshal(instruments)
	if err != nil {
		zaplogger.Error("Failed to marshal refresh snapshot", zaplogger.Fields{"error": err})
		return
	}

	ctx := context.Background()
	if err := s.redisClient.Publish(ctx, RedisChannel, payload).Err(); err != nil {
		zaplogger.Error("Failed to publish to Redis", zaplogger.Fields{"error": err})
	}
}

// BridgePostgresNotifications relays the Postgres refresh NOTIFY channel to
// Redis. Blocks; run in a goroutine. Returns immediately when either side is
// not configured.
func (s *PublishService) BridgePostgresNotifications() {
	if s.redisClient == nil || s.pgConnStr == "" {
		return
	}

	listener := pq.NewListener(s.pgConnStr, 10*time.Second, time.Minute, nil)
	err := listener.Listen(repository.RefreshNotifyChannel)
	if err != nil {
		zaplogger.Error("Failed to listen on Postgres channel", zaplogger.Fields{"error": err})
		return
	}

	ctx := context.Background()

	for {
		select {
		case n := <-listener.Notify:
			if n == nil {
				continue
			}
			// Publish the notification to Redis
			err := s.redisClient.Publish(ctx, RedisChannel, n.Extra).Err()
			if err != nil {
				zaplogger.Error("Failed to publish to Redis", zaplogger.Fields{"error": err})
			}
		case <-time.After(90 * time.Second):
			go func() {
				err := listener.Ping()
				if err != nil {
					zaplogger.Error("Error pinging PostgreSQL", zaplogger.Fields{"error": err})
				}
			}()
		}
	}
}
