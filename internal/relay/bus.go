package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"inkwell/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "relay:room:"

// Envelope is a relayed frame travelling between processes.
type Envelope struct {
	Node   string          `json:"node"`
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Frame  json.RawMessage `json:"frame"`
}

// Bus fans relay frames out to other processes.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, deliver func(Envelope)) error
}

// RedisBus publishes frames on relay:room:<id> channels. Frames published by
// this process are not delivered back to it.
type RedisBus struct {
	rdb  *redis.Client
	node string
}

// NewRedisBus returns a bus over rdb.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb, node: uuid.NewString()}
}

// RoomChannel returns the pub/sub channel for a room.
func RoomChannel(room string) string {
	return roomChannelPrefix + room
}

// Publish sends env to every process subscribed to the room channel.
func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	env.Node = b.node
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return b.rdb.Publish(ctx, RoomChannel(env.Room), payload).Err()
}

// Subscribe listens on all room channels until ctx is cancelled and calls
// deliver for each envelope published by another process.
func (b *RedisBus) Subscribe(ctx context.Context, deliver func(Envelope)) error {
	sub := b.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	// Wait for the subscription to be confirmed so no early publish is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe relay rooms: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in relay subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()

					var env Envelope
					if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
						observability.Logger.Warn("invalid relay envelope",
							slog.String("channel", msg.Channel),
							slog.String("error", err.Error()),
						)
						return
					}
					if env.Node == b.node {
						return
					}
					if env.Room == "" {
						env.Room = strings.TrimPrefix(msg.Channel, roomChannelPrefix)
					}
					deliver(env)
				}()
			}
		}
	}()

	return nil
}
