package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("redis endpoint: %v", err)
	}
	return "redis://" + endpoint, func() { container.Terminate(ctx) }
}

func TestPublishTransition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	ctx := context.Background()
	url, cleanup := startRedis(t, ctx)
	defer cleanup()

	bus, err := NewBus(url, zap.NewNop())
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()

	ev := &LivenessEvent{
		Agent:   "stripe",
		BaseURL: "http://localhost:8001",
		From:    "online",
		To:      "offline",
		At:      time.Now(),
	}
	if err := bus.PublishTransition(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Read the stream back with a plain client and verify the payload.
	opts, _ := goredis.ParseURL(url)
	rdb := goredis.NewClient(opts)
	defer rdb.Close()

	msgs, err := rdb.XRange(ctx, Stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(msgs))
	}
	data, ok := msgs[0].Values["data"].(string)
	if !ok {
		t.Fatal("stream entry missing data field")
	}
	var got LivenessEvent
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.Agent != "stripe" || got.From != "online" || got.To != "offline" {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestNewBusBadURL(t *testing.T) {
	if _, err := NewBus("not-a-url", zap.NewNop()); err == nil {
		t.Error("expected error for malformed redis url")
	}
}
