// Package status publishes refresh outcomes to an optional Redis channel.
// The dashboard page subscribes to show when the panel was last updated;
// nothing in the refresh pipeline depends on the publisher, and a publish
// failure never fails a cycle.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/magicmirror/epaper-renderer/internal/config"
	"github.com/magicmirror/epaper-renderer/pkg/models"
)

// Publisher pushes RefreshResult events to a Redis pub/sub channel.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(cfg config.RedisConfig, logger *zap.Logger) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.String("channel", cfg.Channel))

	return &Publisher{
		client:  rdb,
		channel: cfg.Channel,
		logger:  logger,
	}, nil
}

// Publish sends one refresh result to the channel.
func (p *Publisher) Publish(ctx context.Context, result *models.RefreshResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh result: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", p.channel, err)
	}

	p.logger.Debug("Published refresh result",
		zap.String("channel", p.channel),
		zap.Bool("success", result.Success),
		zap.String("failure_kind", result.FailureKind))

	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
