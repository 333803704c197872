package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/whiteboard-server/internal/core"
)

// RedisBus relays events between instances over redis pub/sub,
// one channel per room.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	log    *zerolog.Logger
}

// NewRedisBus connects to redis and verifies connectivity.
func NewRedisBus(ctx context.Context, addr string, db int, prefix string, logger *zerolog.Logger) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBus{rdb: rdb, prefix: prefix, log: logger}, nil
}

// Publish sends a message to the room's channel.
func (b *RedisBus) Publish(ctx context.Context, msg core.BusMessage) error {
	raw, err := encode(msg)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel(msg.Room), raw).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Subscribe listens to every room channel and invokes fn for each message
// until ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(core.BusMessage)) error {
	pubsub := b.rdb.PSubscribe(ctx, b.channel("*"))
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so early publishes are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decode(m.Payload)
			if err != nil {
				b.log.Warn().Err(err).Str("channel", m.Channel).Msg("dropping malformed bus message")
				continue
			}
			if msg.Room == "" {
				msg.Room = strings.TrimPrefix(m.Channel, b.prefix)
			}
			fn(msg)
		}
	}
}

// Close shuts down the redis connection.
func (b *RedisBus) Close() error { return b.rdb.Close() }

func (b *RedisBus) channel(room string) string { return b.prefix + room }

func encode(msg core.BusMessage) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode bus message: %w", err)
	}
	return raw, nil
}

func decode(payload string) (core.BusMessage, error) {
	var msg core.BusMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return core.BusMessage{}, fmt.Errorf("decode bus message: %w", err)
	}
	if msg.Origin == "" || msg.Kind == "" {
		return core.BusMessage{}, fmt.Errorf("decode bus message: missing origin or kind")
	}
	return msg, nil
}

var _ core.Bus = (*RedisBus)(nil)
