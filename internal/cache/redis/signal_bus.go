package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/polymirror/mirrorbot/internal/domain"
)

// defaultStreamMaxLen caps stream growth when no explicit limit is
// configured, enforced via XADD MAXLEN ~.
const defaultStreamMaxLen int64 = 10000

// SignalBus implements domain.SignalBus using Redis Streams for durable,
// ordered delivery of trade signals to downstream executors.
type SignalBus struct {
	rdb    *redis.Client
	maxLen int64
}

// NewSignalBus creates a SignalBus backed by the given Client. maxLen bounds
// each stream's approximate length; pass 0 to use the default.
func NewSignalBus(c *Client, maxLen int64) *SignalBus {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &SignalBus{rdb: c.Underlying(), maxLen: maxLen}
}

// Publish appends a payload to a Redis stream using XADD with approximate
// MAXLEN trimming, so the stream never grows without bound.
func (sb *SignalBus) Publish(ctx context.Context, stream string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: sb.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := sb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
