package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

// RedisPubSub receives push frames published on a Redis channel. The
// subscription itself is the handshake.
type RedisPubSub struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisPubSub(rdb *redis.Client, channel string, logger *slog.Logger) *RedisPubSub {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPubSub{rdb: rdb, channel: channel, logger: logger}
}

func (r *RedisPubSub) Run(ctx context.Context, onConnected func(), onUpdate func(models.TallyUpdateEvent)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: subscribe %s: %v", ErrUnavailable, r.channel, err)
	}
	r.logger.Info("push transport connected", "event", "push_connected", "transport", "redis", "channel", r.channel)
	onConnected()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			ev, isUpdate, err := Decode([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("dropping push frame", "event", "push_frame_invalid", "error", err.Error())
				continue
			}
			if isUpdate {
				onUpdate(ev)
			}
		}
	}
}
