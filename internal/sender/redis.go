package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"hostwatch/internal/config"
	"hostwatch/internal/logger"
	"hostwatch/internal/network"
)

// RedisSender appends each message to a capped Redis stream.
type RedisSender struct {
	client *redis.Client
	stream string
	maxLen int64
	mu     sync.RWMutex
	closed bool
}

// NewRedisSender creates a sender for the configured stream. The connection
// is established lazily on the first Send.
func NewRedisSender(cfg config.RedisConfig, socksCfg config.SOCKSConfig) (*RedisSender, error) {
	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	dial, err := network.DialContext(socksCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for Redis: %w", err)
	}
	if dial != nil {
		opts.Dialer = dial
	}

	log := logger.WithComponent("redis-sender")
	log.Info().
		Str("address", cfg.Address).
		Int("db", cfg.DB).
		Str("stream", cfg.Stream).
		Msg("RedisSender initialized")

	return &RedisSender{
		client: redis.NewClient(opts),
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}, nil
}

// Name returns "redis".
func (s *RedisSender) Name() string { return config.SinkRedis }

// Send adds the message as one stream entry.
func (s *RedisSender) Send(ctx context.Context, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	fields, err := json.Marshal(msg.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":        msg.ID.String(),
			"kind":      string(msg.Kind),
			"title":     msg.Title,
			"host":      msg.Hostname,
			"timestamp": msg.Timestamp.UTC().Format(time.RFC3339Nano),
			"fields":    string(fields),
			"text":      msg.Text(),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("Redis XADD %s failed: %w", s.stream, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
