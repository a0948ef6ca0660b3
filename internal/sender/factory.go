package sender

import (
	"fmt"
	"strings"

	"hostwatch/internal/config"
	"hostwatch/internal/logger"
)

// NewSender creates the Sender selected by cfg.SinkType, wrapped in a
// RetrySender when delivery retries are configured.
func NewSender(cfg *config.Config) (Sender, error) {
	log := logger.WithComponent("sender-factory")

	sinkType := strings.ToLower(cfg.SinkType)
	log.Info().
		Str("sink", sinkType).
		Int("retries", cfg.Delivery.Retries).
		Msg("Creating sender")

	var (
		s   Sender
		err error
	)
	switch sinkType {
	case config.SinkDiscord:
		s, err = NewDiscordSender(cfg.Discord, cfg.SOCKSProxy)
	case config.SinkFile:
		s, err = NewFileSender(cfg.File)
	case config.SinkKafka:
		s, err = NewKafkaSender(cfg.Kafka, cfg.SOCKSProxy)
	case config.SinkRedis:
		s, err = NewRedisSender(cfg.Redis, cfg.SOCKSProxy)
	default:
		return nil, fmt.Errorf("unknown sink type: %s (supported: discord, file, kafka, redis)", cfg.SinkType)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Delivery.Retries > 0 {
		return NewRetrySender(s, cfg.Delivery.Retries, cfg.Delivery.Backoff), nil
	}
	return s, nil
}
