package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/launchsignal/validator-backend/internal/platform/envutil"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
	"github.com/launchsignal/validator-backend/internal/realtime"
)

// redisBus fans pipeline events across processes: worker instances publish
// dimension and job updates onto one pub/sub channel, API instances forward
// them into their local SSE hubs.
type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisBus(log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	channel := envutil.String("REDIS_CHANNEL", "validation_events")
	log.Info("validation event bus connected", "addr", addr, "channel", channel)
	return &redisBus{
		log:     log.With("service", "ValidationEventBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("event bus not initialized")
	}
	if msg.Channel == "" {
		return fmt.Errorf("event has no target channel")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("event bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(m realtime.SSEMessage)) {
	defer sub.Close()
	events := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-events:
			if !ok || m == nil {
				return
			}
			msg, err := decodeEvent([]byte(m.Payload))
			if err != nil {
				b.log.Warn("dropping undeliverable bus event", "error", err)
				continue
			}
			onMsg(msg)
		}
	}
}

// decodeEvent parses a bus payload and rejects events that could never reach
// a subscriber, so the hub is not asked to broadcast into the void.
func decodeEvent(raw []byte) (realtime.SSEMessage, error) {
	var msg realtime.SSEMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return realtime.SSEMessage{}, fmt.Errorf("decode event: %w", err)
	}
	if msg.Channel == "" {
		return realtime.SSEMessage{}, fmt.Errorf("event has no target channel")
	}
	return msg, nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
