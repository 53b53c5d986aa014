package eventsink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/redis/go-redis/v9"
)

// redisList is the part of the go-redis client the sink uses.
type redisList interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisConfig describes the Redis list events are pushed to.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// MaxLen caps the list; older events are trimmed. Zero keeps everything.
	MaxLen  int
	Timeout time.Duration
}

// RedisSink pushes JSON events onto a capped Redis list, newest first.
type RedisSink struct {
	list    redisList
	client  *redis.Client
	key     string
	maxLen  int64
	timeout time.Duration
}

// NewRedisSink connects and pings the server.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := deliveryContext(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	s := newRedisSink(client, cfg)
	s.client = client
	return s, nil
}

func newRedisSink(list redisList, cfg RedisConfig) *RedisSink {
	key := cfg.Key
	if key == "" {
		key = "appagent:events"
	}
	return &RedisSink{list: list, key: key, maxLen: int64(cfg.MaxLen), timeout: cfg.Timeout}
}

func (s *RedisSink) Emit(ctx context.Context, event *types.AgentEvent) {
	data, ok := encode(event)
	if !ok {
		return
	}
	ctx, cancel := deliveryContext(ctx, s.timeout)
	defer cancel()

	if err := s.list.LPush(ctx, s.key, data).Err(); err != nil {
		sinkLog.Warnf("redis push of %s failed: %v", event.Name(), err)
		return
	}
	if s.maxLen > 0 {
		if err := s.list.LTrim(ctx, s.key, 0, s.maxLen-1).Err(); err != nil {
			sinkLog.Warnf("redis trim of %s failed: %v", s.key, err)
		}
	}
}

// Close closes the client opened by NewRedisSink.
func (s *RedisSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
