package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/config"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/resilience"

	"github.com/redis/go-redis/v9"
)

// PresenceMirror publishes agent presence to Redis so other processes (and
// ops tooling) can observe who is online. All writes go through a circuit
// breaker; a dead Redis never blocks the chat engine.
type PresenceMirror struct {
	client  *redis.Client
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	log     *logger.Logger
}

// NewPresenceMirror connects to Redis and verifies the connection.
func NewPresenceMirror(cfg *config.Config, log *logger.Logger) (*PresenceMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	return &PresenceMirror{
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("redis-presence"), log),
		ttl:     cfg.Chat.PresenceHeartbeatTTL,
		log:     log,
	}, nil
}

// SetOnline writes or clears the presence key for an agent.
func (m *PresenceMirror) SetOnline(ctx context.Context, agentID uint, online bool) error {
	key := presenceKey(agentID)
	return m.breaker.Execute(func() error {
		if !online {
			return m.client.Del(ctx, key).Err()
		}
		return m.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl).Err()
	})
}

// Heartbeat refreshes the TTL on an agent's presence key. A key that is
// allowed to expire marks the agent offline to external observers.
func (m *PresenceMirror) Heartbeat(ctx context.Context, agentID uint) error {
	key := presenceKey(agentID)
	return m.breaker.Execute(func() error {
		ok, err := m.client.Expire(ctx, key, m.ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			// Key expired or was never set; recreate it.
			return m.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl).Err()
		}
		return nil
	})
}

// OnlineAgentIDs lists agent IDs with a live presence key.
func (m *PresenceMirror) OnlineAgentIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := m.breaker.Execute(func() error {
		iter := m.client.Scan(ctx, 0, "presence:agent:*", 100).Iterator()
		for iter.Next(ctx) {
			var id uint
			if _, err := fmt.Sscanf(iter.Val(), "presence:agent:%d", &id); err == nil {
				ids = append(ids, id)
			}
		}
		return iter.Err()
	})
	return ids, err
}

// Ping checks the Redis connection for health reporting.
func (m *PresenceMirror) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (m *PresenceMirror) Close() error {
	return m.client.Close()
}

func presenceKey(agentID uint) string {
	return fmt.Sprintf("presence:agent:%d", agentID)
}
