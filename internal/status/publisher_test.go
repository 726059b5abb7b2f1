package status

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/magicmirror/epaper-renderer/internal/config"
	"github.com/magicmirror/epaper-renderer/pkg/models"
)

func TestPublisher(t *testing.T) {
	// This test requires a running Redis instance. Skip if Redis is not
	// available.
	cfg := config.RedisConfig{
		Addr:    "localhost:6379",
		DB:      1,
		Channel: "epaper:refresh:test",
	}

	probe := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	ctx := context.Background()
	if err := probe.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	sub := probe.Subscribe(ctx, cfg.Channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	p, err := NewPublisher(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	defer p.Close()

	want := &models.RefreshResult{
		Type:        "refresh_result",
		URL:         "http://localhost:8080",
		Panel:       models.Panel{Width: 960, Height: 680},
		Success:     false,
		FailureKind: "navigation_timeout",
		Error:       "page load exceeded 60s",
		DurationMS:  61000,
		ProcessedAt: time.Now(),
	}
	if err := p.Publish(ctx, want); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	if err != nil {
		t.Fatalf("failed to receive published message: %v", err)
	}

	var got models.RefreshResult
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if got.FailureKind != want.FailureKind {
		t.Errorf("got failure kind %q, want %q", got.FailureKind, want.FailureKind)
	}
	if got.Success {
		t.Error("got success true, want false")
	}
	if got.Panel.Width != 960 {
		t.Errorf("got panel width %d, want 960", got.Panel.Width)
	}
}
